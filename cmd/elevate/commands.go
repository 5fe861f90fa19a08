package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	sudo "github.com/danielmain/electron-sudo-universal"
)

var errNoCommand = errors.New("no command given")

func newExecCmd(a *app) *cobra.Command {
	var shell, dir string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command line>",
		Short: "Run a command line elevated and wait for it",
		Long:  `Runs the command line through the platform shell with elevated privileges and prints its output once it exits.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := a.sudoer(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var opts []sudo.ExecOption
			if shell != "" {
				opts = append(opts, sudo.Shell(shell))
			}

			if dir != "" {
				opts = append(opts, sudo.Dir(dir))
			}

			res, err := s.Exec(cmd.Context(), strings.Join(args, " "), opts...)
			if res != nil {
				_, _ = a.stdout.Write(res.Stdout)
				_, _ = a.stderr.Write(res.Stderr)
			}

			return exitStatus(err)
		},
	}

	cmd.Flags().StringVar(&shell, "shell", "", "Shell used to run the command line")
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory of the elevated command")

	return cmd
}

func newSpawnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "spawn [flags] -- <command> [args...]",
		Short: "Start a command elevated and stream its output",
		Long: `Starts the command with elevated privileges and streams stdout and stderr as they are produced.
A single argument is split like a shell would, so "elevate spawn 'ls -la /root'" works too.
Interrupting elevate kills the elevated process.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, rest, err := splitCommand(args)
			if err != nil {
				return err
			}

			s, cleanup, err := a.sudoer(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			h, err := s.Spawn(ctx, command, rest)
			if err != nil {
				return err
			}

			a.logger.Debug("spawned", zap.Int("pid", h.Pid()), zap.String("command", command))

			return exitStatus(a.stream(ctx, h))
		},
	}
}

// splitCommand returns the command and its arguments, shell-splitting a lone argument.
func splitCommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, errNoCommand
	}

	if len(args) > 1 {
		return args[0], args[1:], nil
	}

	parsed, err := sudo.ParseCommand(args[0])
	if err != nil {
		return "", nil, err
	}

	return parsed.Cmd, parsed.Args, nil
}

// stream copies the handle's output to the terminal until the process exits,
// killing it when ctx is canceled.
func (a *app) stream(ctx context.Context, h *sudo.Handle) error {
	var g errgroup.Group

	g.Go(func() error { return relay(a.stdout, h.Stdout()) })
	g.Go(func() error { return relay(a.stderr, h.Stderr()) })

	select {
	case <-h.Done():
	case <-ctx.Done():
		a.logger.Debug("interrupted, killing elevated process", zap.Int("pid", h.Pid()))

		_ = h.Kill()
	}

	waitErr := h.Wait()

	if err := g.Wait(); err != nil {
		return err
	}

	return waitErr
}

func relay(w io.Writer, chunks <-chan []byte) error {
	var writeErr error

	for chunk := range chunks {
		if writeErr == nil {
			_, writeErr = w.Write(chunk)
		}
	}

	return writeErr
}

// exitStatus maps a failed elevated command to the exit code elevate returns.
func exitStatus(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *sudo.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode > 0 {
		return &exitCodeError{code: exitErr.ExitCode, err: err}
	}

	return err
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show how commands would be elevated on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, cleanup, err := a.sudoer(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(a.stdout, paint(titleStyle, "🔐 Elevation"))
			a.field("platform", s.Platform().String())
			a.field("workspace", s.Workspace().Root())

			switch strategy := s.(type) {
			case *sudo.Linux:
				a.field("nixos", fmt.Sprint(strategy.NixOS()))

				binary, err := strategy.Resolve(cmd.Context())
				if err != nil {
					a.field("binary", paint(errorStyle, "not found"))

					var notFound *sudo.BinaryNotFoundError
					if errors.As(err, &notFound) {
						a.field("candidates", strings.Join(notFound.Candidates, ", "))
					}

					return err
				}

				a.field("binary", binary)
			case *sudo.Darwin:
				a.field("prompt", "applet on missing sudo ticket")
			case *sudo.Windows:
				a.field("helper", s.Workspace().Path("elevate.exe"))
			}

			return nil
		},
	}
}

func (a *app) field(label, value string) {
	fmt.Fprintf(a.stdout, "%s %s\n", paint(labelStyle, label+":"), paint(infoStyle, value))
}
