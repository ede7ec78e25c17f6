package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for cleanup paths that would remove the project
// root or something outside it
var ErrUnsafePath = errors.New("refusing to remove path outside the project")

// Clean removes each path under root. Missing paths are ignored; any other
// failure stops at the first error.
func Clean(root string, paths []string) error {
	for _, p := range paths {
		target, err := insideRoot(root, p)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// emptyDir removes the contents of dir, which must lie inside root, and
// makes sure it exists
func emptyDir(root, dir string) error {
	dir, err := insideRoot(root, dir)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to empty output directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func insideRoot(root, p string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)

	if target == absRoot || !within(absRoot, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}
	return target, nil
}

// within reports whether path is dir or lies below it
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
