package sudo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_Paths(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	ws := NewWorkspace(tmp, "abc")

	assert.Equal(t, filepath.Join(tmp, "abc"), ws.Root())
	assert.Equal(t, "abc", ws.ID())
	assert.Equal(t, tmp, ws.TempDir())
	assert.Equal(t, filepath.Join(tmp, "abc", "x", "y.app"), ws.Path("x", "y.app"))

	other := t.TempDir()
	rebased := ws.Rebase(other)
	assert.Equal(t, filepath.Join(other, "abc"), rebased.Root())
	assert.Equal(t, "abc", rebased.ID())
}

func TestWorkspace_Ensure(t *testing.T) {
	t.Parallel()

	ws := NewWorkspace(t.TempDir(), "id")

	dir, err := ws.Ensure("nested")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = ws.Ensure("nested")
	require.NoError(t, err, "ensuring twice is fine")
}

func TestWorkspace_Remove(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	ws := NewWorkspace(tmp, "id")

	dir, err := ws.Ensure("prompt")
	require.NoError(t, err)

	target := filepath.Join(dir, "Electron.app")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "Contents"), 0o700))

	require.NoError(t, ws.Remove(target))
	assert.NoDirExists(t, target)

	require.NoError(t, ws.Remove(target), "removing an absent path succeeds")
}

func TestWorkspace_RemoveRejectsOutsideRoot(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	ws := NewWorkspace(tmp, "id")

	outside := filepath.Join(tmp, "precious")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o600))

	sibling := filepath.Join(tmp, "id-sibling")
	require.NoError(t, os.MkdirAll(sibling, 0o700))

	for _, target := range []string{
		outside,
		sibling,
		filepath.Join(ws.Root(), "..", "precious"),
		tmp,
	} {
		err := ws.Remove(target)
		require.ErrorIs(t, err, ErrOutsideWorkspace, target)
	}

	assert.FileExists(t, outside)
	assert.DirExists(t, sibling)
}
