package local

import (
	"context"
	"errors"
	"fmt"
	"os"

	sudo "github.com/danielmain/electron-sudo-universal"
)

// Copy copies a local file or directory tree to dst.
// Symlinks inside a tree are recreated, not followed.
func (e *Environment) Copy(ctx context.Context, src, dst string, opts ...sudo.FileOption) error {
	if e.isClosed() {
		return fmt.Errorf("cannot copy %s: %w", src, sudo.ErrEnvironmentClosed)
	}

	cfg := sudo.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if !cfg.Recursive {
			return errors.New("recursive directory copy is disabled by configuration")
		}

		return e.copyDir(ctx, src, dst, cfg)
	}

	mode := info.Mode().Perm()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	return e.copyFile(ctx, src, dst, mode)
}
