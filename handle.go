package sudo

import (
	"bytes"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"
)

// stream is an unbounded, ordered queue of output chunks. Writers never block;
// the channel returned by chunks delivers them in write order and is closed once
// the stream is closed and drained. Every byte is also kept for Handle.Output.
type stream struct {
	mu      sync.Mutex
	pending [][]byte
	all     bytes.Buffer
	closed  bool
	wake    chan struct{}
	out     chan []byte
	once    sync.Once
}

func newStream() *stream {
	return &stream{
		wake: make(chan struct{}, 1),
		out:  make(chan []byte),
	}
}

// Write queues a copy of p.
func (s *stream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return len(p), nil
	}

	s.pending = append(s.pending, bytes.Clone(p))
	s.all.Write(p)
	s.mu.Unlock()

	s.signal()

	return len(p), nil
}

func (s *stream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
}

func (s *stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// chunks starts delivery on first use. Callers that ask for the channel must drain it.
func (s *stream) chunks() <-chan []byte {
	s.once.Do(func() { go s.pump() })

	return s.out
}

func (s *stream) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			closed := s.closed
			s.mu.Unlock()

			if closed {
				return
			}

			<-s.wake

			continue
		}

		chunk := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.out <- chunk
	}
}

func (s *stream) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return bytes.Clone(s.all.Bytes())
}

// Handle is a live elevated process returned by Sudoer.Spawn.
//
// Output arrives on Stdout and Stderr in the order it was produced. Done is closed
// once the process exited and every per-invocation artifact (for example the Windows
// batch job) was removed, so Wait never returns while those files still exist.
type Handle struct {
	pid    int
	proc   Process
	stdout *stream
	stderr *stream
	job    *BatchJob
	logger *zap.Logger

	done     chan struct{}
	err      error
	exitCode int
}

func newHandle(proc Process, stdout, stderr *stream, logger *zap.Logger) *Handle {
	return &Handle{
		pid:    proc.Pid(),
		proc:   proc,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// watch waits for the process in the background. The after hooks run in order with the
// wait error once the process exited, before the streams are closed and Done fires.
func (h *Handle) watch(after ...func(error)) {
	go func() {
		err := h.proc.Wait()

		exitCode := 0
		if res := h.proc.Result(); res != nil {
			exitCode = res.ExitCode
		}

		for _, fn := range after {
			fn(err)
		}

		h.stdout.close()
		h.stderr.close()

		if closeErr := h.proc.Close(); closeErr != nil {
			h.logger.Debug("closing process", zap.Int("pid", h.pid), zap.Error(closeErr))
		}

		h.err = err
		h.exitCode = exitCode
		close(h.done)
	}()
}

// Pid returns the process id of the elevation binary that was spawned.
func (h *Handle) Pid() int {
	return h.pid
}

// Stdout returns the channel of standard output chunks. It is closed after the process
// exited and all output was delivered. A caller that asks for it must drain it.
func (h *Handle) Stdout() <-chan []byte {
	return h.stdout.chunks()
}

// Stderr returns the channel of standard error chunks. See Stdout.
func (h *Handle) Stderr() <-chan []byte {
	return h.stderr.chunks()
}

// Output returns everything written to stdout and stderr so far.
func (h *Handle) Output() (stdout, stderr []byte) {
	return h.stdout.bytes(), h.stderr.bytes()
}

// Done is closed when the process exited and its artifacts were cleaned up.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done and returns the process error, if any.
func (h *Handle) Wait() error {
	<-h.done

	return h.err
}

// ExitCode returns the exit status. Only valid after Done.
func (h *Handle) ExitCode() int {
	select {
	case <-h.done:
		return h.exitCode
	default:
		return -1
	}
}

// Job returns the batch job backing a Windows process, or nil on other platforms.
func (h *Handle) Job() *BatchJob {
	return h.job
}

// Kill sends a kill signal to the process. A process that already exited is not an error.
func (h *Handle) Kill() error {
	select {
	case <-h.done:
		return nil
	default:
	}

	err := h.proc.Signal(os.Kill)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	h.logger.Debug("signal failed, killing by pid", zap.Int("pid", h.pid), zap.Error(err))
	killPID(h.pid)

	return nil
}
