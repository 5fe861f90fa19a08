package mock

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/stretchr/testify/mock"

	sudo "github.com/danielmain/electron-sudo-universal"
)

// Arguments is the argument list handed to Run callbacks.
type Arguments = mock.Arguments

// Re-exported so callers need a single mock import.
var (
	Anything  = mock.Anything
	MatchedBy = mock.MatchedBy
)

// Environment implements a mock sudo.Environment using testify/mock.
type Environment struct {
	mock.Mock

	os sudo.TargetOS
}

var _ sudo.Environment = (*Environment)(nil)

// New creates a new mock environment reporting target as its operating system.
func New(target sudo.TargetOS) *Environment {
	return &Environment{os: target}
}

// Copy mocks copying a file or directory tree.
func (m *Environment) Copy(ctx context.Context, src, dst string, opts ...sudo.FileOption) error {
	// Variadic capture fix for testify
	args := m.Called(ctx, src, dst, opts)

	return args.Error(0)
}

// Run mocks running a command to completion.
func (m *Environment) Run(ctx context.Context, cmd *sudo.Command) (*sudo.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*sudo.Result), args.Error(1)
}

// Start mocks starting a command asynchronously.
func (m *Environment) Start(ctx context.Context, cmd *sudo.Command) (sudo.Process, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(sudo.Process), args.Error(1)
}

// TargetOS returns the operating system given to New. It records no call.
func (m *Environment) TargetOS() sudo.TargetOS {
	return m.os
}

// Close mocks closing the environment.
func (m *Environment) Close() error {
	args := m.Called()

	return args.Error(0)
}

// Process implements a mock sudo.Process using testify/mock.
type Process struct {
	mock.Mock

	pid int
}

var _ sudo.Process = (*Process)(nil)

// NewProcess creates a mock process with the given pid.
func NewProcess(pid int) *Process {
	return &Process{pid: pid}
}

// Wait mocks waiting for the process to complete.
func (m *Process) Wait() error {
	args := m.Called()

	return args.Error(0)
}

// Result mocks returning the process result.
func (m *Process) Result() *sudo.Result {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*sudo.Result)
}

// Signal mocks sending a signal to the process.
func (m *Process) Signal(sig os.Signal) error {
	args := m.Called(sig)

	return args.Error(0)
}

// Pid returns the pid given to NewProcess. It records no call.
func (m *Process) Pid() int {
	return m.pid
}

// Close mocks closing the process.
func (m *Process) Close() error {
	args := m.Called()

	return args.Error(0)
}

// Line returns the script of a shell invocation ("sh -c <script>", "cmd /d /s /c <script>")
// or the whole command line for anything else.
func Line(cmd *sudo.Command) string {
	if cmd == nil {
		return ""
	}

	if n := len(cmd.Args); n > 0 {
		switch cmd.Args[0] {
		case "-c", "/d":
			return cmd.Args[n-1]
		}
	}

	return cmd.String()
}

// MatchLine matches a *sudo.Command whose Line contains substr.
func MatchLine(substr string) any {
	return mock.MatchedBy(func(cmd *sudo.Command) bool {
		return strings.Contains(Line(cmd), substr)
	})
}

// MatchCmd matches a *sudo.Command started from binary.
func MatchCmd(binary string) any {
	return mock.MatchedBy(func(cmd *sudo.Command) bool {
		return cmd != nil && cmd.Cmd == binary
	})
}

// Respond writes stdout and stderr to the streams of the *sudo.Command passed to Run or Start.
// Usage: env.On("Run", mock.Anything, mock.MatchLine("id -u")).Run(Respond("0\n", "")).Return(res, nil).
func Respond(stdout, stderr string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		cmd, ok := args.Get(1).(*sudo.Command)
		if !ok {
			return
		}

		WriteOutput(cmd.Stdout, stdout)(args)
		WriteOutput(cmd.Stderr, stderr)(args)
	}
}

// WriteOutput is a helper to simulate output writing for mocked processes.
// Usage: mockProcess.On("Wait").Run(WriteOutput(cmd.Stdout, "output")).Return(nil).
func WriteOutput(w io.Writer, content string) func(mock.Arguments) {
	return func(_ mock.Arguments) {
		if w != nil && content != "" {
			_, _ = io.WriteString(w, content)
		}
	}
}
