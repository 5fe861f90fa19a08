package sudo

import (
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultName is the display name used in prompts when none is configured.
const DefaultName = "Electron"

const (
	defaultSudoPath      = "/usr/bin/sudo"
	defaultOSReleasePath = "/etc/os-release"
	defaultPollInterval  = 50 * time.Millisecond
	maxNameLength        = 70
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// LinuxCandidates lists the elevation binaries scanned on Linux, in priority order.
type LinuxCandidates struct {
	Wrapper string // distro wrapper (NixOS /run/wrappers)
	Primary string // system pkexec
	GUI     string // system gksudo
	Bundled string // bundled gksudo, skipped on NixOS
}

// Config holds the construction-time configuration of a Sudoer.
// It is captured once by New and never re-read from the process afterwards.
type Config struct {
	Name string
	Icon string
	Env  map[string]string

	TargetOS      TargetOS
	TempDir       string
	User          string
	OSReleasePath string
	AssetsDir     string
	SudoPath      string
	Linux         LinuxCandidates
	PollInterval  time.Duration

	Logger     *zap.Logger
	Registerer prometheus.Registerer

	iconSet bool
	osSet   bool
}

// Option defines a functional option for a Sudoer.
type Option func(*Config)

// WithName sets the display name shown in prompts and descriptions.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithIcon sets a custom .icns icon for the macOS password prompt.
func WithIcon(path string) Option {
	return func(c *Config) {
		c.Icon = path
		c.iconSet = true
	}
}

// WithEnv sets environment variables passed to every elevated command.
// Per-call variables given with Env take precedence.
func WithEnv(env map[string]string) Option {
	return func(c *Config) {
		c.Env = maps.Clone(env)
	}
}

// WithTargetOS overrides the platform reported by the Environment.
func WithTargetOS(os TargetOS) Option {
	return func(c *Config) {
		c.TargetOS = os
		c.osSet = true
	}
}

// WithTempDir sets the directory the per-instance workspace is rooted at.
func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithUser sets the current user name required by the macOS prompt flow.
func WithUser(name string) Option {
	return func(c *Config) {
		c.User = name
	}
}

// WithOSReleasePath sets the os-release file used for distribution detection.
func WithOSReleasePath(path string) Option {
	return func(c *Config) {
		c.OSReleasePath = path
	}
}

// WithAssetsDir sets the directory holding applet.app, elevate.exe and gksudo.
func WithAssetsDir(dir string) Option {
	return func(c *Config) {
		c.AssetsDir = dir
	}
}

// WithSudoPath sets the sudo binary used on macOS.
func WithSudoPath(path string) Option {
	return func(c *Config) {
		c.SudoPath = path
	}
}

// WithLinuxCandidates overrides the Linux elevation binary candidates.
func WithLinuxCandidates(candidates LinuxCandidates) Option {
	return func(c *Config) {
		c.Linux = candidates
	}
}

// WithPollInterval sets how often the Windows output relay re-reads the output file
// when no file-system event arrives.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRegisterer registers the instance metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

func defaultConfig() Config {
	assets := "bin"
	if exe, err := os.Executable(); err == nil {
		assets = filepath.Join(filepath.Dir(exe), "bin")
	}

	return Config{
		Name:          DefaultName,
		Env:           map[string]string{},
		TargetOS:      DetectLocalOS(),
		TempDir:       os.TempDir(),
		User:          currentUser(),
		OSReleasePath: defaultOSReleasePath,
		AssetsDir:     assets,
		SudoPath:      defaultSudoPath,
		PollInterval:  defaultPollInterval,
		Logger:        zap.NewNop(),
	}
}

func currentUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}

	if u, err := user.Current(); err == nil {
		return u.Username
	}

	return ""
}

func (c *Config) applyDefaults() {
	if c.Linux == (LinuxCandidates{}) {
		c.Linux = LinuxCandidates{
			Wrapper: "/run/wrappers/bin/pkexec",
			Primary: "/usr/bin/pkexec",
			GUI:     "/usr/bin/gksudo",
			Bundled: filepath.Join(c.AssetsDir, "gksudo"),
		}
	}
}

// Validate checks the display name and icon options.
func (c *Config) Validate() error {
	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		return &InvalidOptionError{Option: "name", Reason: "must be a non-empty string"}
	case len(c.Name) >= maxNameLength:
		return &InvalidOptionError{Option: "name", Reason: "must be shorter than 70 characters"}
	case !validName.MatchString(c.Name):
		return &InvalidOptionError{Option: "name", Reason: "may only contain letters, digits and spaces"}
	}

	if c.iconSet && strings.TrimSpace(c.Icon) == "" {
		return &InvalidOptionError{Option: "icon", Reason: "must be a non-empty path if provided"}
	}

	if c.TempDir == "" {
		return &InvalidOptionError{Option: "tempDir", Reason: "no temporary directory available"}
	}

	return nil
}

// ExecConfig holds per-call configuration derived from options.
type ExecConfig struct {
	Env   map[string]string
	Shell string
	Dir   string
}

// ExecOption defines a functional option for a single Exec or Spawn call.
type ExecOption func(*ExecConfig)

// Env sets environment variables for this call only.
func Env(env map[string]string) ExecOption {
	return func(c *ExecConfig) {
		if c.Env == nil {
			c.Env = make(map[string]string, len(env))
		}

		maps.Copy(c.Env, env)
	}
}

// Shell overrides the shell the elevation command line is run through.
func Shell(path string) ExecOption {
	return func(c *ExecConfig) {
		c.Shell = path
	}
}

// Dir sets the working directory of the elevation command.
func Dir(dir string) ExecOption {
	return func(c *ExecConfig) {
		c.Dir = dir
	}
}

// NewExecConfig applies opts to an empty ExecConfig.
func NewExecConfig(opts ...ExecOption) ExecConfig {
	return newExecConfig(nil, opts)
}

// newExecConfig merges the instance environment under the per-call options.
func newExecConfig(base map[string]string, opts []ExecOption) ExecConfig {
	cfg := ExecConfig{Env: maps.Clone(base)}
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}

	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// FileConfig holds configuration for file copies.
type FileConfig struct {
	Permissions os.FileMode // Destination perms override (0 means preserve/default)
	Recursive   bool        // Default true
}

// DefaultFileConfig returns defaults.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Recursive: true,
	}
}

// FileOption defines a functional option for file copies.
type FileOption func(*FileConfig)

// WithPermissions forces specific destination file mode.
func WithPermissions(mode os.FileMode) FileOption {
	return func(c *FileConfig) {
		c.Permissions = mode
	}
}
