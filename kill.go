package sudo

import (
	"github.com/shirou/gopsutil/v4/process"
)

// killPID kills pid if it still exists. Failures, including "already terminated",
// are swallowed: the helper is fire-and-forget.
func killPID(pid int) {
	if pid <= 0 {
		return
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}

	_ = p.Kill()
}
