package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	sudo "github.com/danielmain/electron-sudo-universal"
	"github.com/danielmain/electron-sudo-universal/fileutil"
)

func (e *Environment) copyDir(ctx context.Context, src, dst string, cfg sudo.FileConfig) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		targetPath := filepath.Join(dst, relPath)

		if err := fileutil.CheckPathTraversal(dst, targetPath); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			// Owner write is kept so the tree can be filled and removed again.
			return os.MkdirAll(targetPath, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			return copySymlink(path, targetPath)
		}

		mode := info.Mode().Perm()
		if cfg.Permissions != 0 {
			mode = cfg.Permissions
		}

		return e.copyFile(ctx, path, targetPath, mode)
	})
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(link, dst)
}

func (e *Environment) copyFile(ctx context.Context, src, dst string, mode os.FileMode) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	// Ensure parent exists
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	if _, err := io.Copy(destFile, &fileutil.ContextReader{Ctx: ctx, Reader: sourceFile}); err != nil {
		return err
	}

	if err := destFile.Sync(); err != nil {
		return err
	}

	// OpenFile applies mode only on creation and through the umask.
	if err := destFile.Chmod(mode); err != nil {
		return err
	}

	return destFile.Close()
}
