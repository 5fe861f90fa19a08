// Package mock provides a controllable implementation of sudo.Environment
// for testing purposes.
//
// It allows defining expectations for command execution and file copies,
// enabling deterministic unit tests of the elevation strategies on any host.
//
// Usage:
//
//	env := mock.New(sudo.OSLinux)
//	env.On("Run", mock.Anything, mock.MatchLine("pkexec")).
//		Run(mock.Respond("0\n", "")).
//		Return(&sudo.Result{}, nil)
//	s, _ := sudo.New(env)
package mock
