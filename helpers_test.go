package sudo_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
	"github.com/danielmain/electron-sudo-universal/providers/mock"
)

// ok is the result of a process that exited cleanly.
var ok = &sudo.Result{ExitCode: 0}

// failed is the result of a process that exited with status 1.
var failed = &sudo.Result{ExitCode: 1}

// counter sums every series of the counter called name.
func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}

	return total
}

// exited returns a mock process that exits with code once release is closed.
func exited(pid, code int, release <-chan struct{}) *mock.Process {
	proc := mock.NewProcess(pid)
	proc.On("Wait").Run(func(_ mock.Arguments) {
		if release != nil {
			<-release
		}
	}).Return(nil)
	proc.On("Result").Return(&sudo.Result{ExitCode: code})
	proc.On("Close").Return(nil)
	proc.On("Signal", mock.Anything).Return(nil).Maybe()

	return proc
}
