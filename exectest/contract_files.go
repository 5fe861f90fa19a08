package exectest

import (
	"os"
	"path/filepath"

	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
)

const testPermissions = 0o600

func notWindows(_ T, env sudo.Environment) (bool, string) {
	return env.TargetOS() != sudo.OSWindows, "permissions not applicable on Windows"
}

func fileContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryFilesystem,
			Name:        "copy-failure-source-missing",
			Description: "Error returned when the source does not exist",
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "this-file-really-does-not-exist-12345")
				dst := filepath.Join(t.TempDir(), "should-not-exist-12345")

				require.ErrorIs(t, env.Copy(t.Context(), src, dst), os.ErrNotExist)
				require.NoFileExists(t, dst)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "copy-creates-parents",
			Description: "Copy creates missing destination directories",
			Run: func(t T, env sudo.Environment) {
				content := "hello from sudo"

				src := filepath.Join(t.TempDir(), "test.txt")
				require.NoError(t, os.WriteFile(src, []byte(content), 0o644))

				dst := filepath.Join(t.TempDir(), "nested", "dir", "level1", "test.txt")
				require.NoError(t, env.Copy(t.Context(), src, dst))

				got, err := os.ReadFile(dst)
				require.NoError(t, err)
				require.Equal(t, content, string(got))
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "copy-overwrites-larger-file",
			Description: "Copying a smaller file over a larger one must truncate, not leave stale data",
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "small.txt")
				require.NoError(t, os.WriteFile(src, []byte("small"), 0o644))

				dst := filepath.Join(t.TempDir(), "large.txt")
				require.NoError(t, os.WriteFile(dst, []byte("this is a much larger existing file that should be fully replaced"), 0o644))

				require.NoError(t, env.Copy(t.Context(), src, dst))

				got, err := os.ReadFile(dst)
				require.NoError(t, err)
				require.Equal(t, []byte("small"), got)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "copy-recursive-bundle",
			Description: "Copy reproduces a directory tree such as an application bundle",
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "applet.app")
				require.NoError(t, os.MkdirAll(filepath.Join(src, "Contents", "Resources"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(src, "Contents", "Info.plist"), []byte("plist"), 0o644))
				require.NoError(t, os.WriteFile(filepath.Join(src, "Contents", "Resources", "applet.icns"), []byte("icns"), 0o644))

				dst := filepath.Join(t.TempDir(), "Renamed.app")
				require.NoError(t, env.Copy(t.Context(), src, dst))

				got, err := os.ReadFile(filepath.Join(dst, "Contents", "Info.plist"))
				require.NoError(t, err)
				require.Equal(t, "plist", string(got))

				got, err = os.ReadFile(filepath.Join(dst, "Contents", "Resources", "applet.icns"))
				require.NoError(t, err)
				require.Equal(t, "icns", string(got))
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "copy-respects-permissions",
			Description: "Copied file has the mode set by WithPermissions",
			Prereq:      notWindows,
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "perms.txt")
				require.NoError(t, os.WriteFile(src, []byte("permissions test"), 0o644))

				dst := filepath.Join(t.TempDir(), "perms.txt")
				require.NoError(t, env.Copy(t.Context(), src, dst, sudo.WithPermissions(testPermissions)))

				info, err := os.Stat(dst)
				require.NoError(t, err)
				require.Equal(t, os.FileMode(testPermissions), info.Mode().Perm())
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "copy-preserves-executable",
			Description: "A staged helper keeps its executable bit",
			Prereq:      notWindows,
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "helper")
				require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

				dst := filepath.Join(t.TempDir(), "staged", "helper")
				require.NoError(t, env.Copy(t.Context(), src, dst))

				info, err := os.Stat(dst)
				require.NoError(t, err)
				require.NotZero(t, info.Mode().Perm()&0o100)
			},
		},
	}
}
