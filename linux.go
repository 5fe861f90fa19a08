package sudo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/danielmain/electron-sudo-universal/fileutil"
)

var _ Sudoer = (*Linux)(nil)

const defaultDisplay = ":0"

// nixOSPolkitHint is the configuration a NixOS system needs for the pkexec wrapper.
const nixOSPolkitHint = `Please ensure the following configuration is present:

security.polkit.enable = true;
security.wrappers.pkexec = {
  owner = "root";
  group = "root";
  source = "${pkgs.polkit}/bin/pkexec";
  setuid = true;
};
environment.systemPackages = [ pkgs.polkit ];

Then rebuild with: sudo nixos-rebuild switch`

// Linux elevates through pkexec or gksudo. The binary is resolved on first use and
// reused for the life of the instance unless Reset is called.
type Linux struct {
	*base

	nixOS      bool
	candidates []string

	group  singleflight.Group
	mu     sync.RWMutex
	binary string
}

func newLinux(env Environment, cfg Config) *Linux {
	l := &Linux{
		base:  newBase(env, cfg),
		nixOS: detectNixOS(cfg.OSReleasePath),
	}

	l.candidates = []string{cfg.Linux.Wrapper, cfg.Linux.Primary, cfg.Linux.GUI}
	if !l.nixOS {
		l.candidates = append(l.candidates, cfg.Linux.Bundled)
	}

	l.logger.Debug("linux strategy ready", zap.Bool("nixos", l.nixOS), zap.Strings("candidates", l.candidates))

	return l
}

func detectNixOS(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	return strings.Contains(string(data), "ID=nixos")
}

// NixOS reports whether the NixOS variant was detected at construction.
func (l *Linux) NixOS() bool {
	return l.nixOS
}

// Candidates returns the scanned binaries in priority order.
func (l *Linux) Candidates() []string {
	return append([]string(nil), l.candidates...)
}

// Binary returns the resolved elevation binary, or "" before the first resolution.
func (l *Linux) Binary() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.binary
}

// Reset forgets the resolved binary so the next call scans again.
func (l *Linux) Reset() {
	l.mu.Lock()
	l.binary = ""
	l.mu.Unlock()

	l.group.Forget("binary")
}

// Resolve returns the memoized binary, probing the candidates on the first call.
// Concurrent first calls share one scan.
func (l *Linux) Resolve(ctx context.Context) (string, error) {
	if binary := l.Binary(); binary != "" {
		return binary, nil
	}

	v, err, _ := l.group.Do("binary", func() (any, error) {
		if binary := l.Binary(); binary != "" {
			return binary, nil
		}

		binary, err := l.scan(ctx)
		if err != nil {
			return "", err
		}

		l.mu.Lock()
		l.binary = binary
		l.mu.Unlock()

		return binary, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// scan stats every candidate in parallel and picks the first existing one in order.
func (l *Linux) scan(ctx context.Context) (string, error) {
	found := make([]bool, len(l.candidates))

	g, _ := errgroup.WithContext(ctx)
	for i, candidate := range l.candidates {
		g.Go(func() error {
			found[i] = candidate != "" && fileutil.Exists(candidate)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	for i, ok := range found {
		if ok {
			l.metrics.recordResolution(filepath.Base(l.candidates[i]))
			l.logger.Info("resolved elevation binary", zap.String("binary", l.candidates[i]))

			return l.candidates[i], nil
		}
	}

	l.metrics.recordResolution("")

	notFound := &BinaryNotFoundError{Candidates: l.Candidates(), NixOS: l.nixOS}
	if l.nixOS {
		notFound.Remediation = "Polkit is not properly configured on your NixOS system.\n" + nixOSPolkitHint
	}

	return "", notFound
}

// usesGksudo reports whether binary gets the gksudo flag set.
func (l *Linux) usesGksudo(binary string) bool {
	return !l.nixOS && strings.Contains(strings.ToLower(filepath.Base(binary)), "gksudo")
}

// flags returns the command-line flags for binary.
func (l *Linux) flags(binary string) string {
	if l.usesGksudo(binary) {
		return joinLine("--preserve-env", "--sudo-mode", `--description="`+EscapeDoubleQuotes(l.cfg.Name)+`"`)
	}

	return "--disable-internal-agent"
}

// argv returns the flags for binary as separate arguments.
func (l *Linux) argv(binary string) []string {
	if l.usesGksudo(binary) {
		return []string{"--preserve-env", "--sudo-mode", "--description=" + l.cfg.Name}
	}

	return []string{"--disable-internal-agent"}
}

func (l *Linux) execConfig(opts []ExecOption) ExecConfig {
	cfg := l.base.execConfig(opts)
	if _, ok := cfg.Env["DISPLAY"]; !ok {
		cfg.Env["DISPLAY"] = defaultDisplay
	}

	return cfg
}

// Exec runs "<binary> <flags> <command>" through the shell.
func (l *Linux) Exec(ctx context.Context, command string, opts ...ExecOption) (*BufferedResult, error) {
	start := time.Now()

	binary, err := l.Resolve(ctx)
	if err != nil {
		l.metrics.recordAttempt("exec", start, err)

		return nil, err
	}

	cfg := l.execConfig(opts)
	line := joinLine(binary, l.flags(binary), command)

	res, err := l.runShell(ctx, line, cfg)
	l.metrics.recordAttempt("exec", start, err)

	if err != nil {
		return res, l.classify(binary, command, err)
	}

	return res, nil
}

// Spawn starts binary directly with [flags..., command, args...].
func (l *Linux) Spawn(ctx context.Context, command string, args []string, opts ...ExecOption) (*Handle, error) {
	start := time.Now()

	binary, err := l.Resolve(ctx)
	if err != nil {
		l.metrics.recordAttempt("spawn", start, err)

		return nil, err
	}

	cfg := l.execConfig(opts)
	stdout, stderr := newStream(), newStream()

	cmd := Cmd(binary).
		Args(l.argv(binary)...).
		Arg(command).
		Args(args...).
		EnvMap(cfg.Env).
		Dir(cfg.Dir).
		Stdout(stdout).
		Stderr(stderr).
		Build()

	proc, err := l.exec.Start(ctx, cmd)
	if err != nil {
		l.metrics.recordAttempt("spawn", start, err)

		if strings.Contains(strings.ToLower(failureText(err)), "permission denied") {
			return nil, &PermissionDeniedError{
				Op:          "spawn",
				Remediation: "Please check your system configuration and permissions.",
				Err:         err,
			}
		}

		return nil, &ProcessExecutionError{Op: "spawn", Command: cmd.String(), Err: err}
	}

	return l.spawned(proc, stdout, stderr, nil, start), nil
}

// classify attaches remediation text to the failures a misconfigured system produces.
func (l *Linux) classify(binary, command string, err error) error {
	text := strings.ToLower(failureText(err))

	switch {
	case strings.Contains(text, "must be setuid root"):
		hint := "Please check your polkit or gksudo installation."
		if l.nixOS {
			hint = "Please check your NixOS polkit configuration.\n" + nixOSPolkitHint
		}

		return &ElevationSetupError{Binary: binary, Remediation: hint, Err: err}
	case strings.Contains(text, "permission denied"):
		return &PermissionDeniedError{
			Op:          "exec",
			Remediation: "Please ensure you have the necessary permissions and that polkit/gksudo is properly configured.",
			Err:         err,
		}
	default:
		return &ProcessExecutionError{Op: "exec", Command: command, Err: fmt.Errorf("%s: %w", filepath.Base(binary), err)}
	}
}
