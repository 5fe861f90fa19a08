package sudo

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.applyDefaults()

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, defaultSudoPath, cfg.SudoPath)
	assert.Equal(t, defaultPollInterval, cfg.PollInterval)
	assert.NotEmpty(t, cfg.TempDir)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, "/run/wrappers/bin/pkexec", cfg.Linux.Wrapper)
	assert.Equal(t, "/usr/bin/pkexec", cfg.Linux.Primary)
	assert.Equal(t, "/usr/bin/gksudo", cfg.Linux.GUI)
	assert.Equal(t, filepath.Join(cfg.AssetsDir, "gksudo"), cfg.Linux.Bundled)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	env := map[string]string{"A": "1"}
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()

	cfg := defaultConfig()
	for _, opt := range []Option{
		WithName("My App"),
		WithIcon("/tmp/icon.icns"),
		WithEnv(env),
		WithTargetOS(OSWindows),
		WithTempDir("/var/tmp"),
		WithUser("alice"),
		WithOSReleasePath("/tmp/os-release"),
		WithAssetsDir("/opt/app/bin"),
		WithSudoPath("/opt/sudo"),
		WithPollInterval(time.Second),
		WithPollInterval(0),
		WithLogger(logger),
		WithLogger(nil),
		WithRegisterer(reg),
	} {
		opt(&cfg)
	}

	env["A"] = "changed"

	assert.Equal(t, "My App", cfg.Name)
	assert.Equal(t, "/tmp/icon.icns", cfg.Icon)
	assert.Equal(t, map[string]string{"A": "1"}, cfg.Env, "env is copied")
	assert.Equal(t, OSWindows, cfg.TargetOS)
	assert.True(t, cfg.osSet)
	assert.Equal(t, "/var/tmp", cfg.TempDir)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "/tmp/os-release", cfg.OSReleasePath)
	assert.Equal(t, "/opt/app/bin", cfg.AssetsDir)
	assert.Equal(t, "/opt/sudo", cfg.SudoPath)
	assert.Equal(t, time.Second, cfg.PollInterval, "non-positive interval is ignored")
	assert.Same(t, logger, cfg.Logger, "nil logger is ignored")
	assert.Same(t, reg, cfg.Registerer)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"default", nil, ""},
		{"spaces and digits", []Option{WithName("App 2")}, ""},
		{"empty name", []Option{WithName("   ")}, "name"},
		{"long name", []Option{WithName(strings.Repeat("a", 70))}, "name"},
		{"punctuation", []Option{WithName("App's")}, "name"},
		{"blank icon", []Option{WithIcon(" ")}, "icon"},
		{"icon", []Option{WithIcon("/tmp/a.icns")}, ""},
		{"no temp dir", []Option{WithTempDir("")}, "tempDir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, ErrInvalidOption)

			var optErr *InvalidOptionError
			require.ErrorAs(t, err, &optErr)
			assert.Equal(t, tt.wantErr, optErr.Option)
		})
	}
}

func TestNewExecConfig(t *testing.T) {
	t.Parallel()

	base := map[string]string{"A": "instance", "B": "instance"}

	cfg := newExecConfig(base, []ExecOption{
		Env(map[string]string{"B": "call"}),
		Env(map[string]string{"C": "call"}),
		Shell("/bin/bash"),
		Dir("/work"),
	})

	assert.Equal(t, map[string]string{"A": "instance", "B": "call", "C": "call"}, cfg.Env)
	assert.Equal(t, "/bin/bash", cfg.Shell)
	assert.Equal(t, "/work", cfg.Dir)
	assert.Equal(t, "instance", base["B"], "instance env is not mutated")

	empty := newExecConfig(nil, nil)
	assert.NotNil(t, empty.Env)
}
