package exectest

import (
	"os"
	"strconv"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sudo "github.com/danielmain/electron-sudo-universal"
)

const (
	runExitErrorCode  = 13
	waitExitErrorCode = 23
)

func exitScript(code int) string {
	return "exit " + strconv.Itoa(code)
}

func errorContracts() []TestCase {
	return []TestCase{
		runNonZeroReturnsExitErrorContract(),
		startWaitNonZeroReturnsExitErrorContract(),
		missingBinaryIsTransportErrorContract(),
		killedProcessFailsWaitContract(),
	}
}

func runNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "run-nonzero-returns-exiterror",
		Description: "Run non-zero failures must return *sudo.ExitError along with the result",
		Run: func(t T, env sudo.Environment) {
			res, err := env.Run(t.Context(), shell(env, exitScript(runExitErrorCode)))
			require.Error(t, err)

			var exitErr *sudo.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, runExitErrorCode, exitErr.ExitCode)

			require.NotNil(t, res)
			assert.Equal(t, runExitErrorCode, res.ExitCode)
		},
	}
}

func startWaitNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "start-wait-nonzero-returns-exiterror",
		Description: "Wait non-zero failures must return *sudo.ExitError",
		Run: func(t T, env sudo.Environment) {
			process, err := env.Start(t.Context(), shell(env, exitScript(waitExitErrorCode)))
			require.NoError(t, err)
			require.NotNil(t, process)

			defer func() { _ = process.Close() }()

			err = process.Wait()
			require.Error(t, err)

			var exitErr *sudo.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, waitExitErrorCode, exitErr.ExitCode)
		},
	}
}

func missingBinaryIsTransportErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "missing-binary-transport-error",
		Description: "A binary that cannot be launched is reported as *sudo.TransportError, not an exit",
		Run: func(t T, env sudo.Environment) {
			_, err := env.Start(t.Context(), sudo.NewCommand("sudo-contract-no-such-binary"))
			require.Error(t, err)

			var transportErr *sudo.TransportError
			require.ErrorAs(t, err, &transportErr)
		},
	}
}

func killedProcessFailsWaitContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "kill-ends-wait",
		Description: "Signal(os.Kill) ends a running process and Wait reports the failure",
		Prereq: func(_ T, env sudo.Environment) (bool, string) {
			return env.TargetOS() != sudo.OSWindows, "sleep is unix only"
		},
		Run: func(t T, env sudo.Environment) {
			process, err := env.Start(t.Context(), sudo.NewCommand("sleep", "30"))
			require.NoError(t, err)

			defer func() { _ = process.Close() }()

			require.NoError(t, process.Signal(os.Kill))

			start := time.Now()
			require.Error(t, process.Wait())
			assert.Less(t, time.Since(start), 5*time.Second)
		},
	}
}
