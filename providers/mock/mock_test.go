package mock

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
)

func TestMockEnvironment(t *testing.T) {
	t.Parallel()

	env := New(sudo.OSLinux)
	ctx := context.Background()

	expectedRes := &sudo.Result{ExitCode: 0}
	env.On("Run", ctx, mock.AnythingOfType("*sudo.Command")).Return(expectedRes, nil)

	res, err := env.Run(ctx, &sudo.Command{Cmd: "echo"})
	require.NoError(t, err)
	assert.Equal(t, expectedRes, res)

	env.On("Copy", ctx, "src", "dst", mock.Anything).Return(nil)

	err = env.Copy(ctx, "src", "dst")
	require.NoError(t, err)

	assert.Equal(t, sudo.OSLinux, env.TargetOS())

	env.AssertExpectations(t)
}

func TestMockProcess(t *testing.T) {
	t.Parallel()

	proc := NewProcess(42)
	proc.On("Signal", os.Kill).Return(nil)
	proc.On("Wait").Return(nil)
	proc.On("Result").Return(&sudo.Result{ExitCode: 3})

	assert.Equal(t, 42, proc.Pid())
	require.NoError(t, proc.Signal(os.Kill))
	require.NoError(t, proc.Wait())
	assert.Equal(t, 3, proc.Result().ExitCode)

	proc.AssertExpectations(t)
}

func TestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  *sudo.Command
		want string
	}{
		{"posix shell", sudo.OSLinux.ShellCommand("id -u", ""), "id -u"},
		{"windows shell", sudo.OSWindows.ShellCommand("echo %temp%", ""), "echo %temp%"},
		{"plain", sudo.NewCommand("sudo", "-n", "true"), "sudo -n true"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Line(tt.cmd))
		})
	}
}

func TestRespond(t *testing.T) {
	t.Parallel()

	env := New(sudo.OSDarwin)
	ctx := context.Background()

	env.On("Run", ctx, MatchLine("id -u")).
		Run(Respond("0\n", "warn\n")).
		Return(&sudo.Result{}, nil)

	var stdout, stderr bytes.Buffer

	cmd := sudo.OSDarwin.ShellCommand("id -u", "")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	_, err := env.Run(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, "0\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
	env.AssertExpectations(t)
}
