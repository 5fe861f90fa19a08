package local

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	sudo "github.com/danielmain/electron-sudo-universal"
)

var _ sudo.Environment = (*Environment)(nil)

// Environment runs commands on this machine through os/exec.
// It is safe for concurrent use.
type Environment struct {
	targetOS sudo.TargetOS

	mu     sync.RWMutex
	closed bool
	active atomic.Int64
}

// New returns an environment reporting the host platform unless WithTargetOS overrides it.
func New(opts ...Option) (*Environment, error) {
	e := &Environment{targetOS: sudo.DetectLocalOS()}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run starts cmd and waits for it. The result carries the exit code even when the
// returned error is a *sudo.ExitError.
func (e *Environment) Run(ctx context.Context, cmd *sudo.Command) (*sudo.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	waitErr := proc.Wait()

	return proc.Result(), waitErr
}

// Start launches cmd without waiting for it. The caller owns the returned process and
// must Wait or Close it.
func (e *Environment) Start(ctx context.Context, cmd *sudo.Command) (sudo.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// The read lock keeps Close from interleaving with a launch in progress.
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), sudo.ErrEnvironmentClosed)
	}

	e.active.Add(1)

	proc, err := launch(ctx, e, cmd)
	if err != nil {
		e.release()

		return nil, &sudo.TransportError{Command: cmd, Err: err}
	}

	return proc, nil
}

// TargetOS returns the platform the environment reports.
func (e *Environment) TargetOS() sudo.TargetOS {
	return e.targetOS
}

// ActiveProcesses returns how many started commands have not exited yet.
func (e *Environment) ActiveProcesses() int {
	return int(e.active.Load())
}

// Close rejects further Start and Copy calls. Processes already running are left alone.
func (e *Environment) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	return nil
}

func (e *Environment) release() {
	e.active.Add(-1)
}

func (e *Environment) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.closed
}
