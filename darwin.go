package sudo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var _ Sudoer = (*Darwin)(nil)

// darwinState is a step of the macOS exec flow.
type darwinState int

const (
	stateNotPrompted darwinState = iota
	stateDirectAttempt
	statePrompting
	stateRetryAttempt
	stateDone
)

func (s darwinState) String() string {
	switch s {
	case stateNotPrompted:
		return "not_prompted"
	case stateDirectAttempt:
		return "direct_attempt"
	case statePrompting:
		return "prompting"
	case stateRetryAttempt:
		return "retry_attempt"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

type darwinEvent int

const (
	eventBegin darwinEvent = iota
	eventSucceeded
	eventFailed
)

// darwinTransitions is the complete exec flow. There is no edge out of stateRetryAttempt
// other than stateDone, which bounds every call to one prompt and one retry.
var darwinTransitions = map[darwinState]map[darwinEvent]darwinState{
	stateNotPrompted:   {eventBegin: stateDirectAttempt},
	stateDirectAttempt: {eventSucceeded: stateDone, eventFailed: statePrompting},
	statePrompting:     {eventSucceeded: stateRetryAttempt, eventFailed: stateDone},
	stateRetryAttempt:  {eventSucceeded: stateDone, eventFailed: stateDone},
}

func eventFor(err error) darwinEvent {
	if err != nil {
		return eventFailed
	}

	return eventSucceeded
}

// Darwin elevates through sudo. When no sudo ticket is cached it opens a renamed copy
// of the bundled prompt applet so macOS shows its native password dialog, then retries.
type Darwin struct {
	*base

	promptMu  sync.Mutex
	prompting atomic.Bool
}

func newDarwin(env Environment, cfg Config) *Darwin {
	return &Darwin{base: newBase(env, cfg)}
}

// Prompting reports whether a password prompt is currently open.
func (d *Darwin) Prompting() bool {
	return d.prompting.Load()
}

// Exec resets the sudo ticket and runs command non-interactively. If that fails it runs
// the password prompt once and retries once, returning the retry's result as is.
func (d *Darwin) Exec(ctx context.Context, command string, opts ...ExecOption) (*BufferedResult, error) {
	start := time.Now()
	cfg := d.execConfig(opts)
	line := d.commandLine(command, cfg.Env)

	var (
		res   *BufferedResult
		err   error
		state = stateNotPrompted
		event = eventBegin
	)

	for state != stateDone {
		next, ok := darwinTransitions[state][event]
		if !ok {
			return nil, fmt.Errorf("invalid prompt flow transition from %s", state)
		}

		d.logger.Debug("exec flow", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next

		switch state {
		case stateDirectAttempt:
			// A ticket that could not be dropped must not be trusted.
			if err = d.reset(ctx); err != nil {
				d.logger.Debug("resetting sudo ticket", zap.Error(err))
				event = eventFailed

				continue
			}

			res, err = d.runShell(ctx, line, cfg)
			event = eventFor(err)
		case statePrompting:
			err = d.prompt(ctx)
			event = eventFor(err)
		case stateRetryAttempt:
			res, err = d.runShell(ctx, line, cfg)
			event = eventFor(err)
		case stateNotPrompted, stateDone:
		}
	}

	d.metrics.recordAttempt("exec", start, err)

	if err != nil {
		return res, d.classify(command, err)
	}

	return res, nil
}

// Spawn always resets the ticket and prompts before starting sudo with the preserved
// environment. There is no non-interactive fast path.
func (d *Darwin) Spawn(ctx context.Context, command string, args []string, opts ...ExecOption) (*Handle, error) {
	start := time.Now()
	cfg := d.execConfig(opts)

	if err := d.reset(ctx); err != nil {
		d.logger.Debug("resetting sudo ticket", zap.Error(err))
	}

	if err := d.prompt(ctx); err != nil {
		d.metrics.recordAttempt("spawn", start, err)

		return nil, err
	}

	joined := strings.Join(append([]string{command}, args...), " ")
	stdout, stderr := newStream(), newStream()

	cmd := Cmd(d.cfg.SudoPath).
		Args("-n", "-s", "-E", joined).
		EnvMap(cfg.Env).
		Dir(cfg.Dir).
		Stdout(stdout).
		Stderr(stderr).
		Build()

	proc, err := d.exec.Start(ctx, cmd)
	if err != nil {
		d.metrics.recordAttempt("spawn", start, err)

		return nil, &ProcessExecutionError{Op: "spawn", Command: joined, Err: err}
	}

	return d.spawned(proc, stdout, stderr, nil, start), nil
}

func (d *Darwin) commandLine(command string, env map[string]string) string {
	parts := append([]string{d.cfg.SudoPath, "-n"}, JoinEnv(env)...)

	return joinLine(append(parts, "-s", command)...)
}

// reset drops any cached sudo ticket.
func (d *Darwin) reset(ctx context.Context) error {
	_, err := d.runShell(ctx, joinLine(d.cfg.SudoPath, "-k"), ExecConfig{})

	return err
}

// prompt opens a renamed copy of the prompt applet and waits for it to quit.
// Only one prompt runs at a time per instance.
func (d *Darwin) prompt(ctx context.Context) (err error) {
	if d.cfg.User == "" {
		return &PromptPreconditionError{Missing: "USER"}
	}

	d.promptMu.Lock()
	defer d.promptMu.Unlock()

	d.prompting.Store(true)
	defer d.prompting.Store(false)

	defer func() { d.metrics.recordPrompt(err) }()

	icon, err := d.readIcon()
	if err != nil {
		return err
	}

	dir, err := d.workspace.Ensure(Hash(d.cfg.Name, icon))
	if err != nil {
		return err
	}

	target := filepath.Join(dir, d.cfg.Name+".app")

	defer func() {
		if rmErr := d.workspace.Remove(target); rmErr != nil {
			d.logger.Warn("removing prompt applet", zap.String("path", target), zap.Error(rmErr))
		}
	}()

	source := filepath.Join(d.cfg.AssetsDir, "applet.app")
	if err := d.exec.Copy(ctx, source, target); err != nil {
		return &ProcessExecutionError{Op: "copy prompt applet", Command: source, Err: err}
	}

	if d.cfg.Icon != "" {
		dst := filepath.Join(target, "Contents", "Resources", "applet.icns")
		if err := d.exec.Copy(ctx, d.cfg.Icon, dst); err != nil {
			return &ProcessExecutionError{Op: "copy prompt icon", Command: d.cfg.Icon, Err: err}
		}
	}

	if err := d.propertyList(ctx, target); err != nil {
		return err
	}

	d.logger.Info("opening password prompt", zap.String("applet", target))

	open := joinLine("open", "-n", "-W", EncloseDoubleQuotes(target))
	if _, err := d.runShell(ctx, open, ExecConfig{}); err != nil {
		return &ProcessExecutionError{Op: "open prompt applet", Command: open, Err: err}
	}

	return nil
}

func (d *Darwin) readIcon() ([]byte, error) {
	if d.cfg.Icon == "" {
		return nil, nil
	}

	icon, err := os.ReadFile(d.cfg.Icon)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon: %w", err)
	}

	return icon, nil
}

// propertyList renames the applet to "<name> Password Prompt".
func (d *Darwin) propertyList(ctx context.Context, target string) error {
	value := d.cfg.Name + " Password Prompt"
	plist := filepath.Join(target, "Contents", "Info.plist")
	line := joinLine("defaults", "write", EncloseDoubleQuotes(plist), EncloseDoubleQuotes("CFBundleName"), "'"+value+"'")

	if _, err := d.runShell(ctx, line, ExecConfig{}); err != nil {
		return &ProcessExecutionError{Op: "write applet name", Command: line, Err: err}
	}

	return nil
}

// classify keeps typed prompt errors and maps a rejected password to PermissionDeniedError.
func (d *Darwin) classify(command string, err error) error {
	if errors.Is(err, ErrPromptPrecondition) || errors.Is(err, ErrInvalidOption) || errors.Is(err, ErrProcessExecution) {
		return err
	}

	text := strings.ToLower(failureText(err))
	if strings.Contains(text, "a password is required") || strings.Contains(text, "incorrect password") {
		return &PermissionDeniedError{
			Op:          "sudo",
			Remediation: "The password prompt was dismissed or the password was rejected. Run the command again and enter an administrator password.",
			Err:         err,
		}
	}

	return &ProcessExecutionError{Op: "exec", Command: command, Err: err}
}
