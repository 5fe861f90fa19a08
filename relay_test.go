package sudo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func appendFile(t *testing.T, path, content string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)

	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestRelay_InitialSnapshotAndTail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	out := newStream()
	r := startRelay(path, out, 10*time.Millisecond, zap.NewNop())

	assert.Equal(t, "first\n", string(out.bytes()), "initial content is emitted before start returns")

	appendFile(t, path, "second\n")

	require.Eventually(t, func() bool {
		return string(out.bytes()) == "first\nsecond\n"
	}, 5*time.Second, 10*time.Millisecond)

	appendFile(t, path, "third\n")
	r.Stop()
	r.Stop()

	out.close()
	assert.Equal(t, "first\nsecond\nthird\n", strings.Join(collect(out.chunks()), ""),
		"stop forwards the final bytes, in order, exactly once")
}

func TestRelay_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	out := newStream()
	r := startRelay(path, out, 10*time.Millisecond, zap.NewNop())
	r.Stop()
	out.close()

	assert.Empty(t, collect(out.chunks()), "no chunk for an empty snapshot")
}

func TestRelay_MissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "never-written")

	out := newStream()
	r := startRelay(path, out, 10*time.Millisecond, zap.NewNop())
	r.Stop()
	out.close()

	assert.Empty(t, out.bytes())
}

func TestRelay_PollOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	out := newStream()
	r := &outputRelay{
		path:     path,
		out:      out,
		interval: 5 * time.Millisecond,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go r.run()

	appendFile(t, path, "polled")

	require.Eventually(t, func() bool {
		return string(out.bytes()) == "polled"
	}, 5*time.Second, 5*time.Millisecond)

	r.Stop()
	out.close()
}

func TestRelay_Truncated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	out := newStream()
	r := startRelay(path, out, time.Hour, zap.NewNop())
	r.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o600))
	r.tail()
	out.close()

	assert.Equal(t, "0123456789ab", string(out.bytes()))
}
