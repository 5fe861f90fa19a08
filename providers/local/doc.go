// Package local provides the sudo.Environment for the machine the program runs on.
//
// It is a thin wrapper around "os/exec" and "os": elevation strategies issue their
// sudo, pkexec and elevate.exe invocations through it, and stage prompt applets and
// helper binaries with Copy.
//
// Usage:
//
//	s, _ := local.NewSudoer(sudo.WithName("My App"))
//	res, _ := s.Exec(ctx, "id -u")
//	_ = res
package local
