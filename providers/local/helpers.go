package local

import (
	"context"

	sudo "github.com/danielmain/electron-sudo-universal"
)

// NewSudoer returns the elevation strategy for this machine backed by a new local
// environment.
func NewSudoer(opts ...sudo.Option) (sudo.Sudoer, error) {
	env, err := New()
	if err != nil {
		return nil, err
	}

	return sudo.New(env, opts...)
}

// RunCommand executes a fully configured command locally, unelevated, using a new environment.
func RunCommand(ctx context.Context, cmd *sudo.Command) (*sudo.BufferedResult, error) {
	env, err := New()
	if err != nil {
		return nil, err
	}

	defer func() { _ = env.Close() }()

	return sudo.NewExecutor(env).RunBuffered(ctx, cmd)
}

// RunShell executes a command line through the local shell, unelevated, using a new environment.
func RunShell(ctx context.Context, line string, opts ...sudo.ExecOption) (*sudo.BufferedResult, error) {
	env, err := New()
	if err != nil {
		return nil, err
	}

	defer func() { _ = env.Close() }()

	return sudo.NewExecutor(env).RunShell(ctx, env.TargetOS(), line, sudo.NewExecConfig(opts...))
}
