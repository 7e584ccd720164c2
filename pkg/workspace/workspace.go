// Package workspace confines file operations to the bot's managed directories
// (modules, backups, temporary downloads).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard resolves and validates paths against one directory root.
type Guard struct {
	rootPath string
}

// NewGuard resolves dir and ensures it exists.
func NewGuard(dir string) (*Guard, error) {
	resolved, err := ResolveRoot(dir)
	if err != nil {
		return nil, err
	}

	return &Guard{rootPath: resolved}, nil
}

// ResolveRoot normalizes a directory path and creates it when missing.
func ResolveRoot(dir string) (string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return "", NewError(ErrorInvalidPath, "directory must not be empty")
	}

	expanded, err := expandHome(trimmed)
	if err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", cleanPath, err)
	}

	resolved, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		return "", NormalizeIOError(err, "resolve directory")
	}

	return filepath.Clean(resolved), nil
}

// Root returns the normalized absolute root path.
func (g *Guard) Root() string {
	if g == nil {
		return ""
	}

	return g.rootPath
}

// ResolvePath validates and returns a canonical absolute path inside the root.
func (g *Guard) ResolvePath(inputPath string) (string, error) {
	if g == nil {
		return "", NewError(ErrorIO, "guard is nil")
	}

	trimmed := strings.TrimSpace(inputPath)
	if trimmed == "" {
		return "", NewError(ErrorInvalidPath, "path must not be empty")
	}

	candidate := trimmed
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.rootPath, candidate)
	}

	absPath, err := filepath.Abs(candidate)
	if err != nil {
		return "", NewError(ErrorInvalidPath, "path could not be resolved")
	}

	effectivePath, err := canonicalPath(filepath.Clean(absPath))
	if err != nil {
		return "", err
	}

	if !isWithin(g.rootPath, effectivePath) {
		return "", NewError(ErrorOutsideDirectory, "resolved path escapes "+g.rootPath)
	}

	return effectivePath, nil
}

// EnsureContained re-checks containment right before mutating operations.
func (g *Guard) EnsureContained(path string) error {
	effectivePath, err := canonicalPath(path)
	if err != nil {
		return err
	}

	if !isWithin(g.rootPath, effectivePath) {
		return NewError(ErrorOutsideDirectory, "resolved path escapes "+g.rootPath)
	}

	return nil
}

// RemoveFiles deletes the regular files directly under the root and returns how
// many were removed. Subdirectories, symlinks and files that cannot be removed
// are skipped.
func (g *Guard) RemoveFiles() (int, error) {
	entries, err := os.ReadDir(g.rootPath)
	if err != nil {
		return 0, NormalizeIOError(err, "list directory")
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(g.rootPath, entry.Name())); err != nil {
			continue
		}
		removed++
	}

	return removed, nil
}

func canonicalPath(path string) (string, error) {
	evaluated, err := filepath.EvalSymlinks(path)
	if err == nil {
		return filepath.Clean(evaluated), nil
	}
	if !os.IsNotExist(err) {
		return "", NormalizeIOError(err, "resolve path")
	}

	parent, remainder, splitErr := nearestExistingParent(path)
	if splitErr != nil {
		return "", splitErr
	}

	evaluatedParent, evalErr := filepath.EvalSymlinks(parent)
	if evalErr != nil {
		return "", NormalizeIOError(evalErr, "resolve path")
	}

	return filepath.Clean(filepath.Join(evaluatedParent, remainder)), nil
}

func nearestExistingParent(path string) (string, string, error) {
	current := filepath.Clean(path)
	parts := make([]string, 0)

	for {
		if _, err := os.Lstat(current); err == nil {
			remainder := ""
			for i := len(parts) - 1; i >= 0; i-- {
				remainder = filepath.Join(remainder, parts[i])
			}
			return current, remainder, nil
		}

		base := filepath.Base(current)
		if base == "." || base == string(filepath.Separator) {
			break
		}
		parts = append(parts, base)

		next := filepath.Dir(current)
		if next == current {
			break
		}
		current = next
	}

	return "", "", NewError(ErrorInvalidPath, "path could not be resolved")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func isWithin(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	return !filepath.IsAbs(rel)
}
