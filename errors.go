package sudo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEnvironmentClosed indicates that an operation was attempted on a closed environment.
var ErrEnvironmentClosed = errors.New("environment is closed")

// Error kinds. Every typed error below matches exactly one of these through errors.Is,
// so callers can branch on the kind without parsing messages.
var (
	ErrPlatformUnsupported = errors.New("unsupported platform")
	ErrInvalidOption       = errors.New("invalid option")
	ErrBinaryNotFound      = errors.New("elevation binary not found")
	ErrElevationSetup      = errors.New("elevation binary misconfigured")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPromptPrecondition  = errors.New("prompt precondition not met")
	ErrProcessExecution    = errors.New("process execution failed")
	ErrOutsideWorkspace    = errors.New("path outside workspace")
)

// ExitError represents a successful execution that resulted in a non-zero exit code.
type ExitError struct {
	Command  *Command
	ExitCode int
	Stderr   []byte
	Cause    error
}

func (e *ExitError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}

	return fmt.Sprintf("command %q exited with code %d", e.Command.String(), e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// TransportError represents a failure in the underlying provider layer
// (e.g. binary not found, fork failure).
type TransportError struct {
	Command *Command
	Err     error
}

func (e *TransportError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}

	return fmt.Sprintf("transport error executing %q: %v", e.Command.String(), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PlatformUnsupportedError is returned by New for a platform without a strategy.
type PlatformUnsupportedError struct {
	Platform string
}

func (e *PlatformUnsupportedError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

func (e *PlatformUnsupportedError) Is(target error) bool {
	return target == ErrPlatformUnsupported
}

// InvalidOptionError reports a malformed construction or per-call option.
type InvalidOptionError struct {
	Option string
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Option, e.Reason)
}

func (e *InvalidOptionError) Is(target error) bool {
	return target == ErrInvalidOption
}

// BinaryNotFoundError is returned when none of the Linux elevation candidates exist.
type BinaryNotFoundError struct {
	Candidates  []string
	NixOS       bool
	Remediation string
}

func (e *BinaryNotFoundError) Error() string {
	msg := "could not find pkexec or gksudo, install either polkit or gksudo"
	if e.NixOS {
		msg = "could not find pkexec, ensure polkit is properly installed"
	}

	if e.Remediation != "" {
		msg += "\n" + e.Remediation
	}

	return msg
}

func (e *BinaryNotFoundError) Is(target error) bool {
	return target == ErrBinaryNotFound
}

// ElevationSetupError reports an elevation binary that exists but is not setuid root.
type ElevationSetupError struct {
	Binary      string
	Remediation string
	Err         error
}

func (e *ElevationSetupError) Error() string {
	return fmt.Sprintf("elevation binary %s is not properly configured with setuid permissions\n%s", e.Binary, e.Remediation)
}

func (e *ElevationSetupError) Unwrap() error {
	return e.Err
}

func (e *ElevationSetupError) Is(target error) bool {
	return target == ErrElevationSetup
}

// PermissionDeniedError reports an elevation attempt rejected by the OS.
type PermissionDeniedError struct {
	Op          string
	Remediation string
	Err         error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied during %s\n%s", e.Op, e.Remediation)
}

func (e *PermissionDeniedError) Unwrap() error {
	return e.Err
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// PromptPreconditionError is returned when the macOS prompt flow cannot start.
type PromptPreconditionError struct {
	Missing string
}

func (e *PromptPreconditionError) Error() string {
	return fmt.Sprintf("password prompt requires %s to be defined", e.Missing)
}

func (e *PromptPreconditionError) Is(target error) bool {
	return target == ErrPromptPrecondition
}

// ProcessExecutionError wraps any failure reported by the process executor.
type ProcessExecutionError struct {
	Op      string
	Command string
	Err     error
}

func (e *ProcessExecutionError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Command, e.Err)
}

func (e *ProcessExecutionError) Unwrap() error {
	return e.Err
}

func (e *ProcessExecutionError) Is(target error) bool {
	return target == ErrProcessExecution
}

// failureText returns the text failures are classified on: the stderr of a command that
// exited non-zero, or the cause of a launch failure. The command line never matches.
func failureText(err error) string {
	if err == nil {
		return ""
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return strings.TrimSpace(string(exitErr.Stderr))
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Err != nil {
		return transportErr.Err.Error()
	}

	return err.Error()
}
