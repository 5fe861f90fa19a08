package sudo

import (
	"io"
)

// Builder provides a fluent API for constructing Commands.
type Builder struct {
	cmd *Command
}

// Cmd creates a new Builder for a command with the given name/path.
func Cmd(binary string) *Builder {
	return &Builder{
		cmd: &Command{
			Cmd: binary,
		},
	}
}

// Arg adds a single argument.
func (b *Builder) Arg(arg string) *Builder {
	b.cmd.Args = append(b.cmd.Args, arg)
	return b
}

// Args adds multiple arguments.
func (b *Builder) Args(args ...string) *Builder {
	b.cmd.Args = append(b.cmd.Args, args...)
	return b
}

// Env adds an environment variable in "KEY=VALUE" format.
func (b *Builder) Env(key, value string) *Builder {
	b.cmd.Env = append(b.cmd.Env, key+"="+value)
	return b
}

// EnvMap adds every entry of env, in key order.
func (b *Builder) EnvMap(env map[string]string) *Builder {
	b.cmd.Env = append(b.cmd.Env, envList(env)...)
	return b
}

// Dir sets the working directory.
func (b *Builder) Dir(dir string) *Builder {
	b.cmd.Dir = dir
	return b
}

// Stdout sets the standard output stream.
func (b *Builder) Stdout(w io.Writer) *Builder {
	b.cmd.Stdout = w
	return b
}

// Stderr sets the standard error stream.
func (b *Builder) Stderr(w io.Writer) *Builder {
	b.cmd.Stderr = w
	return b
}

// Build returns the constructed Command.
func (b *Builder) Build() *Command {
	return b.cmd
}
