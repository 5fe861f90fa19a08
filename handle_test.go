package sudo

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collect(ch <-chan []byte) []string {
	var chunks []string
	for c := range ch {
		chunks = append(chunks, string(c))
	}

	return chunks
}

func TestStream_OrderAndNonBlocking(t *testing.T) {
	t.Parallel()

	s := newStream()

	// Writers never wait for a reader.
	for i := range 100 {
		_, err := fmt.Fprintf(s, "%d;", i)
		require.NoError(t, err)
	}

	s.close()

	chunks := collect(s.chunks())
	require.Len(t, chunks, 100)

	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("%d;", i), c)
	}

	_, err := s.Write([]byte("late"))
	require.NoError(t, err)
	assert.NotContains(t, string(s.bytes()), "late", "writes after close are dropped")
}

func TestStream_ConcurrentReader(t *testing.T) {
	t.Parallel()

	s := newStream()
	ch := s.chunks()

	var (
		wg  sync.WaitGroup
		got []string
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		got = collect(ch)
	}()

	for i := range 50 {
		_, _ = fmt.Fprintf(s, "%d", i)
	}

	s.close()
	wg.Wait()

	require.Len(t, got, 50)
	assert.Equal(t, "0", got[0])
	assert.Equal(t, "49", got[49])
}

func TestStream_CopiesInput(t *testing.T) {
	t.Parallel()

	s := newStream()
	buf := []byte("abc")
	_, _ = s.Write(buf)
	buf[0] = 'X'
	s.close()

	assert.Equal(t, []string{"abc"}, collect(s.chunks()))
	assert.Equal(t, "abc", string(s.bytes()))
}

func TestHandle_Lifecycle(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	proc := new(MockProcess)
	proc.On("Wait").Run(func(mock.Arguments) { <-release }).Return(nil)
	proc.On("Result").Return(&Result{ExitCode: 0})
	proc.On("Close").Return(nil)

	stdout, stderr := newStream(), newStream()
	h := newHandle(proc, stdout, stderr, zap.NewNop())

	var order []string

	h.watch(
		func(error) { order = append(order, "relay stopped") },
		func(error) { order = append(order, "cleaned") },
	)

	_, _ = stdout.Write([]byte("out"))
	_, _ = stderr.Write([]byte("err"))

	assert.Equal(t, 4242, h.Pid())
	assert.Equal(t, -1, h.ExitCode(), "no exit code while running")
	assert.Nil(t, h.Job())

	select {
	case <-h.Done():
		t.Fatal("done before the process exited")
	default:
	}

	close(release)

	require.NoError(t, h.Wait())
	assert.Equal(t, 0, h.ExitCode())
	assert.Equal(t, []string{"relay stopped", "cleaned"}, order)
	assert.Equal(t, []string{"out"}, collect(h.Stdout()))
	assert.Equal(t, []string{"err"}, collect(h.Stderr()))

	out, errOut := h.Output()
	assert.Equal(t, "out", string(out))
	assert.Equal(t, "err", string(errOut))

	proc.AssertExpectations(t)
}

func TestHandle_WaitError(t *testing.T) {
	t.Parallel()

	exitErr := &ExitError{ExitCode: 2}
	proc := new(MockProcess)
	proc.On("Wait").Return(exitErr)
	proc.On("Result").Return(&Result{ExitCode: 2})
	proc.On("Close").Return(nil)

	h := newHandle(proc, newStream(), newStream(), zap.NewNop())

	var hookErr error

	h.watch(func(err error) { hookErr = err })

	require.ErrorIs(t, h.Wait(), exitErr)
	assert.Equal(t, 2, h.ExitCode())
	assert.Same(t, exitErr, hookErr)
}

func TestHandle_Kill(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	proc := new(MockProcess)
	proc.On("Signal", os.Kill).Run(func(mock.Arguments) { close(release) }).Return(nil).Once()
	proc.On("Wait").Run(func(mock.Arguments) { <-release }).Return(errors.New("signal: killed"))
	proc.On("Result").Return(&Result{ExitCode: -1})
	proc.On("Close").Return(nil)

	h := newHandle(proc, newStream(), newStream(), zap.NewNop())
	h.watch()

	require.NoError(t, h.Kill())
	require.Error(t, h.Wait())

	require.NoError(t, h.Kill(), "killing an exited process is not an error")
	proc.AssertNumberOfCalls(t, "Signal", 1)
}

func TestHandle_KillAlreadyDone(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	proc := new(MockProcess)
	proc.On("Signal", os.Kill).Return(os.ErrProcessDone)
	proc.On("Wait").Run(func(mock.Arguments) { <-release }).Return(nil)
	proc.On("Result").Return(&Result{})
	proc.On("Close").Return(nil)

	h := newHandle(proc, newStream(), newStream(), zap.NewNop())
	h.watch()

	require.NoError(t, h.Kill())

	close(release)

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("handle never finished")
	}
}
