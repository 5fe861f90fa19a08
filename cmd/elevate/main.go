// Package main provides elevate, a command line front-end for running commands as
// administrator/root through the platform's native elevation path.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	sudo "github.com/danielmain/electron-sudo-universal"
	"github.com/danielmain/electron-sudo-universal/providers/local"
)

// app carries the flags and collaborators shared by every subcommand.
type app struct {
	configPath  string
	name        string
	icon        string
	tempDir     string
	env         []string
	debug       bool
	showMetrics bool

	stdout io.Writer
	stderr io.Writer

	newEnv   func() (sudo.Environment, error)
	extra    []sudo.Option
	logger   *zap.Logger
	registry *prometheus.Registry
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newEnv: func() (sudo.Environment, error) { return local.New() },
	}
}

// exitCodeError carries the exit status of an elevated command back to main.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func main() {
	err := newRootCmd(newApp()).Execute()
	if err == nil {
		return
	}

	code := 1

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		code = exitErr.code
	}

	fmt.Fprintln(os.Stderr, paint(errorStyle, "❌ "+err.Error()))
	os.Exit(code)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "elevate",
		Short:         "Run commands with administrator privileges",
		Long:          `Runs commands as root/administrator using sudo and a password prompt applet on macOS, pkexec or gksudo on Linux, and elevate.exe on Windows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if a.logger == nil {
				logger, err := newLogger(a.debug)
				if err != nil {
					return fmt.Errorf("failed to build logger: %w", err)
				}

				a.logger = logger
			}

			if a.showMetrics && a.registry == nil {
				a.registry = prometheus.NewRegistry()
			}

			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.showMetrics {
				a.printMetrics()
			}

			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file (name, icon, env, tempDir)")
	flags.StringVar(&a.name, "name", "", "Application name shown in the password prompt")
	flags.StringVar(&a.icon, "icon", "", "Path to an .icns icon for the macOS prompt")
	flags.StringVar(&a.tempDir, "temp-dir", "", "Directory for the per-application workspace")
	flags.StringArrayVar(&a.env, "env", nil, "Environment variable KEY=VALUE for the elevated command (repeatable)")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&a.showMetrics, "metrics", false, "Print elevation metrics when done")

	rootCmd.AddCommand(newExecCmd(a), newSpawnCmd(a), newInfoCmd(a), newCheckCmd(a))

	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	config.OutputPaths = []string{"stderr"}

	return config.Build()
}

// sudoer builds the strategy for this machine from the config file and flags.
func (a *app) sudoer(cmd *cobra.Command) (sudo.Sudoer, func(), error) {
	opts, err := a.options(cmd)
	if err != nil {
		return nil, nil, err
	}

	env, err := a.newEnv()
	if err != nil {
		return nil, nil, err
	}

	s, err := sudo.New(env, opts...)
	if err != nil {
		_ = env.Close()

		return nil, nil, err
	}

	return s, func() {
		if err := s.Cleanup(); err != nil {
			a.logger.Warn("cleanup failed", zap.Error(err))
		}

		_ = env.Close()
	}, nil
}

func (a *app) printMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("failed to gather metrics", zap.Error(err))

		return
	}

	fmt.Fprintln(a.stderr, paint(titleStyle, "📈 Metrics"))

	for _, family := range families {
		for _, m := range family.GetMetric() {
			value := m.GetCounter().GetValue()
			if m.GetHistogram() != nil {
				value = float64(m.GetHistogram().GetSampleCount())
			}

			labels := ""
			for _, pair := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", pair.GetName(), pair.GetValue())
			}

			fmt.Fprintf(a.stderr, "  %s%s %g\n", family.GetName(), labels, value)
		}
	}
}
