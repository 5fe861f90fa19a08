package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	sudo "github.com/danielmain/electron-sudo-universal"
	"github.com/danielmain/electron-sudo-universal/exectest"
	"github.com/danielmain/electron-sudo-universal/providers/mock"
)

type linuxFixture struct {
	app    *app
	env    *mock.Environment
	pkexec string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newLinuxFixture(t *testing.T, installed bool) *linuxFixture {
	t.Helper()

	tmp := t.TempDir()
	pkexec := filepath.Join(tmp, "pkexec")

	if installed {
		require.NoError(t, os.WriteFile(pkexec, nil, 0o700))
	}

	env := mock.New(sudo.OSLinux)
	env.On("Close").Return(nil).Maybe()

	f := &linuxFixture{
		env:    env,
		pkexec: pkexec,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}

	f.app = &app{
		stdout: f.stdout,
		stderr: f.stderr,
		newEnv: func() (sudo.Environment, error) { return env, nil },
		extra: []sudo.Option{
			sudo.WithTempDir(tmp),
			sudo.WithOSReleasePath(filepath.Join(tmp, "os-release")),
			sudo.WithLinuxCandidates(sudo.LinuxCandidates{Primary: pkexec}),
		},
		logger: zaptest.NewLogger(t),
	}

	return f
}

func (f *linuxFixture) run(args ...string) error {
	cmd := newRootCmd(f.app)
	cmd.SetArgs(args)
	cmd.SetOut(f.stdout)
	cmd.SetErr(f.stderr)

	return cmd.ExecuteContext(context.Background())
}

func TestExec(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)
	f.env.On("Run", mock.Anything, mock.MatchLine(f.pkexec+" --disable-internal-agent id -u")).
		Run(mock.Respond("0\n", "")).
		Return(&sudo.Result{}, nil).Once()

	require.NoError(t, f.run("exec", "--", "id", "-u"))
	assert.Equal(t, "0\n", f.stdout.String())
	f.env.AssertExpectations(t)
}

func TestExec_PropagatesExitCode(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)
	f.env.On("Run", mock.Anything, mock.MatchLine("ls /missing")).
		Run(mock.Respond("", "ls: /missing: No such file\n")).
		Return(&sudo.Result{ExitCode: 2}, nil).Once()

	err := f.run("exec", "ls /missing")
	require.ErrorIs(t, err, sudo.ErrProcessExecution)

	var exitErr *exitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.code)
	assert.Contains(t, f.stderr.String(), "No such file")
}

func TestExec_EnvFlags(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)
	f.env.On("Run", mock.Anything, mock.MatchedBy(func(cmd *sudo.Command) bool {
		return assert.ObjectsAreEqual([]string{"DISPLAY=:0", "PARAM=VALUE"}, cmd.Env)
	})).Return(&sudo.Result{}, nil).Once()

	require.NoError(t, f.run("exec", "--env", "PARAM=VALUE", "--", "env"))
	f.env.AssertExpectations(t)

	require.Error(t, f.run("exec", "--env", "NOVALUE", "--", "env"))
}

func TestSpawn(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)

	proc := mock.NewProcess(77)
	proc.On("Wait").Return(nil)
	proc.On("Result").Return(&sudo.Result{})
	proc.On("Close").Return(nil)
	proc.On("Signal", mock.Anything).Return(nil).Maybe()

	f.env.On("Start", mock.Anything, mock.MatchCmd(f.pkexec)).
		Run(mock.Respond("hello\n", "warn\n")).
		Return(proc, nil).Once()

	require.NoError(t, f.run("spawn", "echo hello"))
	assert.Equal(t, "hello\n", f.stdout.String())
	assert.Equal(t, "warn\n", f.stderr.String())
}

func TestInfo(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)

	require.NoError(t, f.run("info"))
	assert.Contains(t, f.stdout.String(), "linux")
	assert.Contains(t, f.stdout.String(), f.pkexec)
	assert.Contains(t, f.stdout.String(), sudo.Hash(sudo.DefaultName, nil))
}

func TestInfo_BinaryNotFound(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, false)

	err := f.run("info")
	require.ErrorIs(t, err, sudo.ErrBinaryNotFound)
	assert.Contains(t, f.stdout.String(), "not found")
	assert.Contains(t, f.stdout.String(), f.pkexec)
}

func TestMetricsFlag(t *testing.T) {
	t.Parallel()

	f := newLinuxFixture(t, true)

	require.NoError(t, f.run("info", "--metrics"))
	assert.Contains(t, f.stderr.String(), `sudo_binary_resolutions_total binary=pkexec platform=linux 1`)
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		command string
		rest    []string
		wantErr bool
	}{
		{"separate args", []string{"ls", "-la", "/root"}, "ls", []string{"-la", "/root"}, false},
		{"single quoted line", []string{`ls -la "/Library/Application Support"`}, "ls", []string{"-la", "/Library/Application Support"}, false},
		{"single command", []string{"id"}, "id", []string{}, false},
		{"unterminated quote", []string{`echo "oops`}, "", nil, true},
		{"nothing", nil, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			command, rest, err := splitCommand(tt.args)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	require.NoError(t, exitStatus(nil))

	plain := os.ErrPermission
	assert.Equal(t, plain, exitStatus(plain))

	var exitErr *exitCodeError
	require.ErrorAs(t, exitStatus(&sudo.ExitError{ExitCode: 5}), &exitErr)
	assert.Equal(t, 5, exitErr.code)
}

func TestRunContracts(t *testing.T) {
	t.Parallel()

	env := mock.New(sudo.OSLinux)
	env.On("Close").Return(nil)

	a := &app{
		stdout: &bytes.Buffer{},
		newEnv: func() (sudo.Environment, error) { return env, nil },
	}

	contracts := []exectest.TestCase{
		{Category: exectest.CategoryCore, Name: "passes", Run: func(exectest.T, sudo.Environment) {}},
		{Category: exectest.CategoryCore, Name: "fails", Run: func(t exectest.T, _ sudo.Environment) {
			require.FailNow(t, "boom")
		}},
		{Category: exectest.CategoryErrors, Name: "skips",
			Prereq: func(exectest.T, sudo.Environment) (bool, string) { return false, "not here" },
			Run:    func(t exectest.T, _ sudo.Environment) { require.FailNow(t, "unreachable") },
		},
	}

	results := a.runContracts(context.Background(), contracts)
	require.Len(t, results, 3)

	assert.True(t, results[0].passed)
	assert.False(t, results[1].passed)
	assert.Contains(t, results[1].errMsg, "boom")
	assert.True(t, results[2].skipped)
	assert.Contains(t, results[2].skipMsg, "not here")

	assert.Equal(t, 1, a.renderResults(results))

	out := a.stdout.(*bytes.Buffer).String()
	assert.Contains(t, out, "core/fails: ")
	assert.Contains(t, out, "SKIPPED")
}
