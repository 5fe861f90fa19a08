package sudo

import (
	"bytes"
	"context"
	"errors"
	"sort"
)

// Executor issues commands on an Environment and captures their output.
type Executor struct {
	env Environment
}

// NewExecutor creates a new Executor with the given environment.
func NewExecutor(env Environment) *Executor {
	return &Executor{env: env}
}

// Run executes a command and converts a non-zero exit into an *ExitError.
func (e *Executor) Run(ctx context.Context, cmd *Command) (*Result, error) {
	res, err := e.env.Run(ctx, cmd)
	if err != nil {
		return res, err
	}

	if res != nil && res.ExitCode != 0 {
		return res, &ExitError{
			Command:  cmd,
			ExitCode: res.ExitCode,
		}
	}

	return res, nil
}

// RunBuffered executes a command and captures both Stdout and Stderr.
func (e *Executor) RunBuffered(ctx context.Context, cmd *Command) (*BufferedResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmdCopy := *cmd // copy
	cmdCopy.Stdout = &stdoutBuf
	cmdCopy.Stderr = &stderrBuf

	result, err := e.Run(ctx, &cmdCopy)

	bufResult := &BufferedResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}
	if result != nil {
		bufResult.Result = *result
	}

	// Attach stderr to ExitError for context
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = bufResult.Stderr
		}
	}

	return bufResult, err
}

// RunShell executes a command line through the shell of target, or through cfg.Shell when set.
func (e *Executor) RunShell(ctx context.Context, target TargetOS, line string, cfg ExecConfig) (*BufferedResult, error) {
	cmd := target.ShellCommand(line, cfg.Shell)
	cmd.Env = envList(cfg.Env)
	cmd.Dir = cfg.Dir

	return e.RunBuffered(ctx, cmd)
}

// Start initiates a command asynchronously.
// Caller is responsible for Process.Wait().
func (e *Executor) Start(ctx context.Context, cmd *Command) (Process, error) {
	return e.env.Start(ctx, cmd)
}

// Copy streams a file or directory tree through the underlying Environment.
func (e *Executor) Copy(ctx context.Context, src, dst string, opts ...FileOption) error {
	return e.env.Copy(ctx, src, dst, opts...)
}

// TargetOS returns the operating system of the underlying environment.
func (e *Executor) TargetOS() TargetOS {
	return e.env.TargetOS()
}

// envList converts an environment map to sorted KEY=VALUE entries for Command.Env.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}

	sort.Strings(list)

	return list
}
