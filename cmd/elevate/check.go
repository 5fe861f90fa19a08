package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	sudo "github.com/danielmain/electron-sudo-universal"
	"github.com/danielmain/electron-sudo-universal/exectest"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the process executor on this machine",
		Long:  `Runs the executor contract suite (unelevated) against this machine to confirm that commands, streams and file copies behave as the elevation strategies expect.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.stdout, paint(titleStyle, "🔍 Executor Contract Check"))

			results := a.runContracts(cmd.Context(), exectest.AllContracts())

			if failed := a.renderResults(results); failed > 0 {
				return fmt.Errorf("%d contract(s) failed", failed)
			}

			return nil
		},
	}
}

type testResult struct {
	tc      exectest.TestCase
	passed  bool
	skipped bool
	errMsg  string
	skipMsg string
}

// cliTester satisfies exectest.T outside of `go test`.
type cliTester struct {
	ctx      context.Context //nolint:containedctx
	name     string
	failed   bool
	skipped  bool
	errMsg   string
	skipMsg  string
	tempDirs []string
}

func (c *cliTester) Errorf(f string, a ...any) {
	c.failed = true
	c.errMsg = fmt.Sprintf(f, a...)
}

func (c *cliTester) FailNow() {
	c.failed = true

	panic(failNow{})
}

func (c *cliTester) Skipf(f string, a ...any) {
	c.skipped = true
	c.skipMsg = fmt.Sprintf(f, a...)

	panic(skipNow{})
}

func (c *cliTester) Context() context.Context {
	return c.ctx
}

func (c *cliTester) Name() string {
	return c.name
}

func (c *cliTester) TempDir() string {
	dir, err := os.MkdirTemp("", "elevate-check-*")
	if err != nil {
		panic(err)
	}

	c.tempDirs = append(c.tempDirs, dir)

	return dir
}

func (c *cliTester) Cleanup() {
	for _, dir := range c.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

type failNow struct{}

type skipNow struct{}

func (a *app) runContracts(ctx context.Context, contracts []exectest.TestCase) []testResult {
	results := make([]testResult, 0, len(contracts))

	for _, tc := range contracts {
		results = append(results, a.executeContract(ctx, tc))
	}

	return results
}

func (a *app) executeContract(ctx context.Context, tc exectest.TestCase) testResult {
	t := &cliTester{
		ctx:  ctx,
		name: tc.ID(),
	}
	defer t.Cleanup()

	env, err := a.newEnv()
	if err != nil {
		return testResult{tc: tc, errMsg: err.Error()}
	}

	defer func() { _ = env.Close() }()

	runContractWithRecovery(t, tc, env)

	return testResult{
		tc:      tc,
		passed:  !t.failed && !t.skipped,
		skipped: t.skipped,
		errMsg:  t.errMsg,
		skipMsg: t.skipMsg,
	}
}

func runContractWithRecovery(t *cliTester, tc exectest.TestCase, env sudo.Environment) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case failNow, skipNow:
				return
			default:
				panic(r)
			}
		}
	}()

	if tc.Prereq != nil {
		ok, reason := tc.Prereq(t, env)
		if !ok {
			t.Skipf("prereq unmet: %s", reason)
		}
	}

	tc.Run(t, env)
}

// renderResults prints one row per contract and returns the number of failures.
func (a *app) renderResults(results []testResult) int {
	const statusWidth = len("SKIPPED")

	nameWidth := len("CONTRACT")
	for _, res := range results {
		nameWidth = max(nameWidth, len(res.tc.Name))
	}

	fmt.Fprintln(a.stdout, paint(headerStyle, fmt.Sprintf("%-*s", nameWidth, "CONTRACT"))+" "+
		paint(headerStyle, fmt.Sprintf("%-*s", statusWidth, "STATUS")))

	var (
		currentCat string
		issues     []string
	)

	for _, res := range results {
		if res.tc.Category != currentCat {
			currentCat = res.tc.Category
			fmt.Fprintln(a.stdout, paint(catStyle, strings.ToUpper(currentCat)))
		}

		status, style := "PASSED", passedStyle

		switch {
		case res.skipped:
			status, style = "SKIPPED", skippedStyle
		case !res.passed:
			status, style = "FAILED", failedStyle
			issues = append(issues, fmt.Sprintf("%s: %s", res.tc.ID(), res.errMsg))
		}

		fmt.Fprintln(a.stdout, paint(rowStyle, fmt.Sprintf("%-*s", nameWidth, res.tc.Name))+" "+
			paint(style, fmt.Sprintf("%-*s", statusWidth, status)))
	}

	if len(issues) == 0 {
		fmt.Fprintln(a.stdout, paint(checkStyle, "✅ The executor honors every contract."))

		return 0
	}

	fmt.Fprintln(a.stdout, paint(errorStyle, "❌ Issue Details:"))

	for _, issue := range issues {
		fmt.Fprintf(a.stdout, "  - %s\n", issue)
	}

	return len(issues)
}

var _ exectest.T = (*cliTester)(nil)
