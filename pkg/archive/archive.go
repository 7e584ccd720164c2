// Package archive writes zip backups of the bot's files.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
)

// TimestampLayout formats the backup name suffix (YYYYMMDD_HHMMSS).
const TimestampLayout = "20060102_150405"

// FileName returns the backup file name for t.
func FileName(t time.Time) string {
	return "backup_" + t.Format(TimestampLayout) + ".zip"
}

// Create zips sources into dir/backup_<timestamp>.zip and returns the archive
// path. Directories are stored recursively under their base name and files
// under their base name. Missing sources are skipped.
func Create(ctx context.Context, dir string, sources []string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	target := filepath.Join(dir, FileName(now))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}

	zw := zip.NewWriter(out)
	writeErr := writeSources(ctx, zw, sources, target)
	closeErr := zw.Close()
	fileErr := out.Close()

	if err := errors.Join(writeErr, closeErr, fileErr); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

func writeSources(ctx context.Context, zw *zip.Writer, sources []string, target string) error {
	absTarget, _ := filepath.Abs(target)

	for _, source := range sources {
		if source == "" {
			continue
		}
		info, err := os.Stat(source)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", source, err)
		}

		if !info.IsDir() {
			if err := addFile(zw, source, filepath.Base(source), info); err != nil {
				return err
			}
			continue
		}

		root := filepath.Clean(source)
		base := filepath.Base(root)
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if abs, _ := filepath.Abs(path); abs == absTarget {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(filepath.Join(base, rel))

			info, err := d.Info()
			if err != nil {
				return err
			}
			if d.IsDir() {
				_, err := zw.CreateHeader(&zip.FileHeader{Name: name + "/", Modified: info.ModTime()})
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			return addFile(zw, path, name, info)
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", source, err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path string, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}
	header.Name = filepath.ToSlash(name)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}
