// Package exectest provides a contract test suite for sudo.Environment implementations.
//
// Every elevation strategy drives its platform tooling through an Environment, so any
// implementation must honor these contracts for the strategies to behave.
package exectest

import (
	"context"
	"fmt"
	"testing"

	sudo "github.com/danielmain/electron-sudo-universal"
)

// Standard categories for grouping tests.
const (
	CategoryCore        = "core"
	CategoryEnvironment = "environment"
	CategoryFilesystem  = "filesystem"
	CategoryErrors      = "errors"
)

// T is the minimal interface required for testify/assert and require.
type T interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
	Context() context.Context
	TempDir() string
	Name() string
}

// Factory returns a fresh environment for a single contract.
type Factory func(t T) sudo.Environment

// TestCase defines a single behavioral contract requirement.
type TestCase struct {
	Category    string
	Name        string
	Description string
	Prereq      func(t T, env sudo.Environment) (ok bool, reason string)
	Run         func(t T, env sudo.Environment)
}

// ID returns the stable, globally unique contract identifier.
func (tc TestCase) ID() string {
	return fmt.Sprintf("%s/%s", tc.Category, tc.Name)
}

// AllContracts returns all test cases for the contract test suite.
func AllContracts() []TestCase {
	var contracts []TestCase

	contracts = append(contracts, coreContracts()...)
	contracts = append(contracts, environmentContracts()...)
	contracts = append(contracts, fileContracts()...)
	contracts = append(contracts, errorContracts()...)

	return contracts
}

// Verify is the standard Go test entry point for provider authors.
// Each contract gets its own environment, closed when the contract finishes.
func Verify(t *testing.T, newEnv Factory) {
	t.Helper()

	for _, tc := range AllContracts() {
		t.Run(tc.ID(), func(t *testing.T) {
			env := newEnv(t)

			t.Cleanup(func() { _ = env.Close() })

			if tc.Prereq != nil {
				ok, reason := tc.Prereq(t, env)
				if !ok {
					t.Skipf("prereq unmet: %s", reason)
				}
			}

			tc.Run(t, env)
		})
	}
}
