//go:build windows

package local

import (
	"os/exec"
	"strconv"
)

func configureGroup(_ *exec.Cmd) {}

// terminateGroup kills leader and its descendants, which includes the cmd.exe that
// elevate.exe launched for a batch job.
//
// TODO(windows): taskkill cannot reach an elevated tree from an unelevated caller; a
// Job Object created by the helper would.
func terminateGroup(leader int) error {
	if leader <= 0 {
		return nil
	}

	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(leader)).Run()
}
