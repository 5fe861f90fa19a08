package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	sudo "github.com/danielmain/electron-sudo-universal"
)

var _ sudo.Process = (*Process)(nil)

// Process is a command started by Environment.Start. Its exit state is written once by
// the reaper goroutine before exited is closed and never changes afterwards.
type Process struct {
	env   *Environment
	cmd   *sudo.Command
	osCmd *exec.Cmd

	exited chan struct{}
	exit   sudo.Result

	closing sync.Once
	closed  atomic.Bool
}

// launch starts cmd and hands the process to a reaper goroutine.
func launch(ctx context.Context, env *Environment, cmd *sudo.Command) (*Process, error) {
	osCmd := exec.CommandContext(ctx, cmd.Cmd, cmd.Args...)
	osCmd.Dir = cmd.Dir
	osCmd.Stdin = cmd.Stdin
	osCmd.Stdout = cmd.Stdout
	osCmd.Stderr = cmd.Stderr

	// Later entries win, so a caller's DISPLAY or PATH replaces the inherited one.
	if len(cmd.Env) > 0 {
		osCmd.Env = append(os.Environ(), cmd.Env...)
	}

	configureGroup(osCmd)

	began := time.Now()
	if err := osCmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{env: env, cmd: cmd, osCmd: osCmd, exited: make(chan struct{})}

	go p.reap(began)

	return p, nil
}

func (p *Process) reap(began time.Time) {
	err := p.osCmd.Wait()

	p.exit = sudo.Result{
		ExitCode: p.osCmd.ProcessState.ExitCode(),
		Duration: time.Since(began),
		Error:    err,
	}

	p.env.release()
	close(p.exited)
}

func (p *Process) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Pid returns the OS process id, or 0 for a process that never started.
func (p *Process) Pid() int {
	if p.osCmd == nil || p.osCmd.Process == nil {
		return 0
	}

	return p.osCmd.Process.Pid
}

// Wait blocks until the command exits. A non-zero exit becomes *sudo.ExitError; a
// cancelled context or a signal is returned unchanged.
func (p *Process) Wait() error {
	switch {
	case p.closed.Load():
		return fmt.Errorf("cannot wait on %q: already closed", p.cmd.String())
	case p.exited == nil:
		return fmt.Errorf("cannot wait on %q: not started", p.cmd.String())
	}

	<-p.exited

	var exitErr *exec.ExitError
	if errors.As(p.exit.Error, &exitErr) && exitErr.ExitCode() > 0 {
		return &sudo.ExitError{Command: p.cmd, ExitCode: exitErr.ExitCode()}
	}

	return p.exit.Error
}

// Result returns a copy of the exit state, or an empty result while the command runs.
func (p *Process) Result() *sudo.Result {
	if p.exited == nil || p.running() {
		return &sudo.Result{}
	}

	res := p.exit

	return &res
}

// Signal delivers sig to the process. Once it exited the result is os.ErrProcessDone.
func (p *Process) Signal(sig os.Signal) error {
	switch {
	case p.closed.Load():
		return fmt.Errorf("cannot signal %q: already closed", p.cmd.String())
	case p.osCmd == nil || p.osCmd.Process == nil:
		return fmt.Errorf("cannot signal %q: not started", p.cmd.String())
	}

	return p.osCmd.Process.Signal(sig)
}

// Close kills a still running process together with its group and waits for it.
// Calling it again is a no-op.
func (p *Process) Close() error {
	p.closing.Do(func() {
		p.closed.Store(true)

		if p.exited == nil {
			return
		}

		if p.running() {
			_ = terminateGroup(p.Pid())
		}

		<-p.exited
	})

	return nil
}
