package sudo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielmain/electron-sudo-universal/fileutil"
)

// Workspace is the per-instance directory every ephemeral artifact lives in.
// Its root is <temp dir>/<id>, where id is the stable Hash of the display name.
// Remove refuses any path that is not below the root.
type Workspace struct {
	tempDir string
	id      string
	root    string
}

// NewWorkspace returns the workspace for id under tempDir. Nothing is created on disk.
func NewWorkspace(tempDir, id string) *Workspace {
	return &Workspace{
		tempDir: tempDir,
		id:      id,
		root:    filepath.Join(tempDir, id),
	}
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// ID returns the identifier the workspace is keyed by.
func (w *Workspace) ID() string {
	return w.id
}

// TempDir returns the temp directory the workspace is rooted at.
func (w *Workspace) TempDir() string {
	return w.tempDir
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.root}, elem...)...)
}

// Rebase returns a workspace with the same id under another temp directory.
func (w *Workspace) Rebase(tempDir string) *Workspace {
	return NewWorkspace(tempDir, w.id)
}

// Ensure creates the workspace directory joined with elem and returns its path.
func (w *Workspace) Ensure(elem ...string) (string, error) {
	dir := w.Path(elem...)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}

	return dir, nil
}

// Contains returns an error wrapping ErrOutsideWorkspace unless target is below the root.
func (w *Workspace) Contains(target string) error {
	if err := fileutil.CheckPathTraversal(w.root, target); err != nil {
		return fmt.Errorf("%w: %w", ErrOutsideWorkspace, err)
	}

	return nil
}

// Remove deletes target and its contents after checking it lives in the workspace.
// Removing an already-absent path succeeds.
func (w *Workspace) Remove(target string) error {
	if err := w.Contains(target); err != nil {
		return fmt.Errorf("refusing to remove suspicious target %s: %w", target, err)
	}

	return fileutil.RemoveAll(target)
}
