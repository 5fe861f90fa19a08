// Package sudo runs commands with administrator/root privileges on macOS, Linux and
// Windows behind one interface.
//
// # Core Interfaces
//
// - Sudoer: the elevation strategy for one platform (Exec, Spawn, Cleanup).
// - Environment: the process executor the strategies issue commands through (Local, Mock).
// - Process: a running command handle (allows Wait, Signal, Close).
//
// # Platforms
//
// New picks the strategy once, from Environment.TargetOS():
//
//   - darwin: resets the sudo ticket, tries `sudo -n`, and on failure opens a renamed
//     prompt applet to surface the native password dialog before retrying exactly once.
//   - linux: scans pkexec/gksudo candidates, memoizes the first one found and adapts flags to it.
//   - windows: writes a batch script, runs it through a bundled elevate.exe helper and tails
//     the redirected output file to stream it.
//
// # Streaming
//
// Spawn returns a Handle whose Stdout/Stderr channels deliver output chunks in the order
// they were produced. Done is closed once the process exited and its artifacts were removed.
package sudo

import (
	"context"
	"io"
	"os"
)

// Sudoer runs commands with elevated privileges on one platform.
type Sudoer interface {
	// Exec runs command through the platform's elevation path and waits for it to finish.
	// It fails when the process cannot be started or exits non-zero.
	Exec(ctx context.Context, command string, opts ...ExecOption) (*BufferedResult, error)

	// Spawn starts command with args elevated and returns as soon as it is running.
	// Runtime failures surface through Handle.Wait.
	Spawn(ctx context.Context, command string, args []string, opts ...ExecOption) (*Handle, error)

	// Cleanup kills every process the instance spawned that is still alive.
	// It is always safe to call, including more than once.
	Cleanup() error

	// Platform returns the platform this strategy elevates on.
	Platform() TargetOS

	// Workspace returns the per-instance temporary directory.
	Workspace() *Workspace
}

// Environment abstracts the system commands are executed on.
type Environment interface {
	io.Closer

	// Run executes a command synchronously.
	// Returns the result (exit code, error). Output is not captured by default; use Command.Stdout/Stderr.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Start initiates a command asynchronously.
	// The caller manages the returned Process (Wait/Signal) and must ensure resources are released via
	// either Wait() or Close().
	Start(ctx context.Context, cmd *Command) (Process, error)

	// TargetOS returns the operating system of the target environment.
	TargetOS() TargetOS

	// Copy streams a file or directory tree from src to dst.
	//
	// It creates any missing parent directories at the destination.
	Copy(ctx context.Context, src, dst string, opts ...FileOption) error
}

// Process represents a command that has been started but not yet completed.
type Process interface {
	io.Closer

	// Wait blocks until the process exits.
	// Returns an error if the exit code is non-zero.
	Wait() error

	// Result returns metadata (exit code, termination status) (only valid after Wait).
	Result() *Result

	// Signal sends an OS signal to the process.
	Signal(sig os.Signal) error

	// Pid returns the OS process id, or 0 if it is unknown.
	Pid() int
}
