package exectest

import (
	"bytes"
	"os"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
)

func shell(env sudo.Environment, line string) *sudo.Command {
	return env.TargetOS().ShellCommand(line, "")
}

// envRef returns the shell reference to variable name.
func envRef(env sudo.Environment, name string) string {
	if env.TargetOS() == sudo.OSWindows {
		return "%" + name + "%"
	}

	return "$" + name
}

func coreContracts() []TestCase {
	return []TestCase{
		{
			Category: CategoryCore,
			Name:     "simple-echo",
			Run: func(t T, env sudo.Environment) {
				result, err := sudo.NewExecutor(env).RunBuffered(t.Context(), sudo.NewCommand("echo", "hello"))
				require.NoError(t, err)
				require.NotNil(t, result)

				assert.Equal(t, "hello", strings.TrimSpace(string(result.Stdout)))
				assert.Equal(t, 0, result.ExitCode)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "streams-are-separate",
			Description: "Stdout and stderr reach their own writers",
			Run: func(t T, env sudo.Environment) {
				result, err := sudo.NewExecutor(env).RunBuffered(t.Context(), shell(env, "echo out && echo err 1>&2"))
				require.NoError(t, err)

				assert.Equal(t, "out", strings.TrimSpace(string(result.Stdout)))
				assert.Equal(t, "err", strings.TrimSpace(string(result.Stderr)))
			},
		},
		{
			Category:    CategoryCore,
			Name:        "env-merges-over-parent",
			Description: "Command.Env entries are visible to the process",
			Run: func(t T, env sudo.Environment) {
				cmd := shell(env, "echo "+envRef(env, "SUDO_CONTRACT"))
				cmd.Env = []string{"SUDO_CONTRACT=present"}

				result, err := sudo.NewExecutor(env).RunBuffered(t.Context(), cmd)
				require.NoError(t, err)
				assert.Equal(t, "present", strings.TrimSpace(string(result.Stdout)))
			},
		},
		{
			Category:    CategoryCore,
			Name:        "working-directory",
			Description: "Command.Dir sets the working directory",
			Prereq: func(_ T, env sudo.Environment) (bool, string) {
				return env.TargetOS() != sudo.OSWindows, "pwd is unix only"
			},
			Run: func(t T, env sudo.Environment) {
				dir := t.TempDir()

				var stdout bytes.Buffer

				_, err := env.Run(t.Context(), &sudo.Command{Cmd: "pwd", Dir: dir, Stdout: &stdout})
				require.NoError(t, err)

				want, err := os.Stat(dir)
				require.NoError(t, err)

				got, err := os.Stat(strings.TrimSpace(stdout.String()))
				require.NoError(t, err)
				assert.True(t, os.SameFile(want, got))
			},
		},
		{
			Category:    CategoryCore,
			Name:        "started-process-has-pid",
			Description: "A started process reports its OS pid",
			Run: func(t T, env sudo.Environment) {
				process, err := env.Start(t.Context(), shell(env, "echo pid"))
				require.NoError(t, err)

				defer func() { _ = process.Close() }()

				assert.Positive(t, process.Pid())
				require.NoError(t, process.Wait())
				assert.Equal(t, 0, process.Result().ExitCode)
			},
		},
	}
}
