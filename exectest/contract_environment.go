package exectest

import (
	"os"
	"path/filepath"

	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
)

func environmentContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryEnvironment,
			Name:        "close-idempotent",
			Description: "Closing an environment multiple times is deterministic and non-fatal",
			Run: func(t T, env sudo.Environment) {
				require.NoError(t, env.Close())
				require.NoError(t, env.Close())
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-run-fails",
			Description: "Run fails with ErrEnvironmentClosed after close",
			Run: func(t T, env sudo.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Run(t.Context(), shell(env, "echo sudo-contract"))
				require.ErrorIs(t, err, sudo.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-start-fails",
			Description: "Start fails with ErrEnvironmentClosed after close",
			Run: func(t T, env sudo.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Start(t.Context(), shell(env, "echo sudo-contract"))
				require.ErrorIs(t, err, sudo.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-copy-fails",
			Description: "Copy fails with ErrEnvironmentClosed after close",
			Run: func(t T, env sudo.Environment) {
				src := filepath.Join(t.TempDir(), "close-copy-src.txt")
				require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))

				require.NoError(t, env.Close())

				err := env.Copy(t.Context(), src, filepath.Join(t.TempDir(), "close-copy-dst.txt"))
				require.ErrorIs(t, err, sudo.ErrEnvironmentClosed)
			},
		},
	}
}
