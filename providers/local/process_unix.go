//go:build !windows

package local

import (
	"os/exec"
	"syscall"
)

// configureGroup makes the command lead its own process group, which the elevated
// child of sudo or pkexec joins.
func configureGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateGroup(leader int) error {
	if leader <= 0 {
		return nil
	}

	return syscall.Kill(-leader, syscall.SIGKILL)
}
