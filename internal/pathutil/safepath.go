// Package pathutil resolves user-supplied file locations for the storage
// backends and keeps them inside the configured data directory.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned for empty or whitespace-only paths.
	ErrEmptyPath = errors.New("path is empty or whitespace-only")

	// ErrNullByte is returned for paths containing \x00.
	ErrNullByte = errors.New("path contains null byte")

	// ErrEscapesBase is returned when a path resolves outside its base directory.
	ErrEscapesBase = errors.New("path escapes base directory")
)

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ResolveSafePath resolves userPath relative to baseDir and verifies that the
// result stays within baseDir once symlinks are followed.
//
// Neither baseDir nor the target has to exist yet: the deepest existing
// ancestor is resolved and the missing components are appended to it.
// A relative userPath is joined with baseDir; an absolute one must already
// point inside it.
//
// Example:
//
//	path, err := ResolveSafePath("/home/user/.local/share/todo-engine", "todos.db")
func ResolveSafePath(baseDir, userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(userPath, "\x00") || strings.Contains(baseDir, "\x00") {
		return "", ErrNullByte
	}

	candidate := userPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, candidate)
	}

	resolved, err := resolveExisting(filepath.Clean(candidate))
	if err != nil {
		return "", err
	}
	baseResolved, err := resolveExisting(filepath.Clean(baseDir))
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(baseResolved, resolved)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesBase, userPath)
	}

	return resolved, nil
}

// resolveExisting follows symlinks in the longest existing prefix of path and
// re-appends the components that don't exist yet.
func resolveExisting(path string) (string, error) {
	current := path
	var missing []string

	for {
		if _, err := os.Lstat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", fmt.Errorf("failed to resolve symlinks: %w", err)
			}
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent directory found for %s", path)
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}
