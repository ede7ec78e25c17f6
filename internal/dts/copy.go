package dts

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyVerbatim copies each file or directory in paths (relative to root)
// into outDir, keeping the base name. Directories are copied recursively.
func CopyVerbatim(root, outDir string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	dest := outDir
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(root, dest)
	}

	for _, p := range paths {
		src := p
		if !filepath.IsAbs(src) {
			src = filepath.Join(root, src)
		}

		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", p, err)
		}

		target := filepath.Join(dest, filepath.Base(src))
		if info.IsDir() {
			err = copyDir(src, target)
		} else {
			err = copyFile(src, target, info.Mode().Perm())
		}
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", p, err)
		}
	}
	return nil
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // paths come from the project build file
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // see above
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
