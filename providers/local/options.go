package local

import sudo "github.com/danielmain/electron-sudo-universal"

// Option configures an Environment at construction.
type Option func(*Environment)

// WithTargetOS makes the environment report os instead of the host platform.
// Shell command lines follow the reported platform.
func WithTargetOS(os sudo.TargetOS) Option {
	return func(e *Environment) {
		e.targetOS = os
	}
}
