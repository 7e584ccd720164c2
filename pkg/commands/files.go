package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"selfbot/pkg/archive"
	"selfbot/pkg/dispatch"
	"selfbot/pkg/workspace"
)

const (
	logTailLines = 20
	// logTailWindow bounds how much of the log file is read from the end.
	logTailWindow = 64 << 10
)

func (s *Set) logs(ctx context.Context, ev *dispatch.Event) error {
	lines, err := tailLines(s.Paths.LogFile, logTailLines)
	if errors.Is(err, fs.ErrNotExist) {
		return ev.Edit(ctx, s.text("logs_empty"))
	}
	if err != nil {
		return dispatch.Reply(s.format("logs_error", err.Error()), err)
	}
	if len(lines) == 0 {
		return ev.Edit(ctx, s.text("logs_empty"))
	}
	return ev.Edit(ctx, s.text("logs_title")+"\n\n```"+strings.Join(lines, "\n")+"\n```")
}

// tailLines returns up to n trailing lines of path.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset := info.Size() - logTailWindow
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		// Drop the partial first line of the window.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
	}
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return nil, nil
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func (s *Set) backup(ctx context.Context, ev *dispatch.Event) error {
	path, err := archive.Create(ctx, s.Paths.BackupsDir, []string{
		s.Paths.ModulesDir,
		s.Executable,
		s.Paths.LogFile,
	}, s.Now())
	if err != nil {
		return dispatch.Reply(s.format("backup_error", err.Error()), err)
	}

	ev.Log.Info("Backup created", "path", path)
	return ev.Edit(ctx, s.format("backup_created", filepath.Base(path)))
}

func (s *Set) clean(ctx context.Context, ev *dispatch.Event) error {
	guard, err := workspace.NewGuard(s.Paths.TempDir)
	if err != nil {
		return dispatch.Reply(s.format("clean_error", err.Error()), err)
	}

	removed, err := guard.RemoveFiles()
	if err != nil {
		return dispatch.Reply(s.format("clean_error", err.Error()), fmt.Errorf("clean %s: %w", guard.Root(), err))
	}

	ev.Log.Info("Temporary files removed", "dir", guard.Root(), "count", removed)
	return ev.Edit(ctx, s.format("temp_cleaned", removed))
}
