package sudo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danielmain/electron-sudo-universal/fileutil"
)

var _ Sudoer = (*Windows)(nil)

const helperName = "elevate.exe"

// BatchJob is the generated batch script and the file its output is redirected to.
// Both live in the instance workspace under the temp directory the shell reports.
type BatchJob struct {
	Batch  string
	Output string

	workspace *Workspace
}

// Cleanup removes both files. Files that are already gone are not an error, so it is
// safe to call more than once. A job that was not written by Windows has no workspace
// and is never removed.
func (j *BatchJob) Cleanup() error {
	if j == nil {
		return nil
	}

	if j.workspace == nil {
		return fmt.Errorf("refusing to remove batch job %s: %w", j.Batch, ErrOutsideWorkspace)
	}

	return errors.Join(j.workspace.Remove(j.Batch), j.workspace.Remove(j.Output))
}

// Windows elevates through the bundled elevate.exe helper. Every command is written to
// a batch file whose output is redirected to a file that is tailed while it runs.
type Windows struct {
	*base

	group  singleflight.Group
	mu     sync.RWMutex
	helper string
}

func newWindows(env Environment, cfg Config) *Windows {
	return &Windows{base: newBase(env, cfg)}
}

// Helper returns the staged helper path, or "" before the first call.
func (w *Windows) Helper() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.helper
}

// prepare stages the helper into the workspace once and reuses it afterwards.
// Concurrent first calls share one copy.
func (w *Windows) prepare(ctx context.Context) (string, error) {
	if helper := w.Helper(); helper != "" {
		return helper, nil
	}

	v, err, _ := w.group.Do("helper", func() (any, error) {
		if helper := w.Helper(); helper != "" {
			return helper, nil
		}

		target := w.workspace.Path(helperName)

		if !fileutil.Exists(target) {
			source := filepath.Join(w.cfg.AssetsDir, helperName)
			w.logger.Debug("staging helper", zap.String("source", source), zap.String("target", target))

			if err := w.exec.Copy(ctx, source, target); err != nil {
				return "", &ProcessExecutionError{Op: "stage helper", Command: source, Err: err}
			}
		}

		w.mu.Lock()
		w.helper = target
		w.mu.Unlock()

		return target, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// tempDir asks the shell for %temp%, the directory batch jobs are written to.
func (w *Windows) tempDir(ctx context.Context) (string, error) {
	res, err := w.runShell(ctx, "echo %temp%", ExecConfig{})
	if err != nil {
		return "", &ProcessExecutionError{Op: "query temp directory", Command: "echo %temp%", Err: err}
	}

	dir := strings.TrimRight(string(res.Stdout), "\r\n")
	if dir == "" {
		return "", &ProcessExecutionError{Op: "query temp directory", Command: "echo %temp%", Err: errors.New("empty output")}
	}

	return dir, nil
}

// batchScript renders the script that runs command with its output redirected to output.
func batchScript(command string, args []string, env map[string]string, output string) string {
	var b strings.Builder

	b.WriteString("setlocal enabledelayedexpansion\r\n")

	if tokens := JoinEnv(env); len(tokens) > 0 {
		b.WriteString("set " + strings.Join(tokens, "\r\nset ") + "\r\n")
	}

	b.WriteString(joinLine(append([]string{command}, args...)...))
	b.WriteString(" > " + EncloseDoubleQuotes(output) + " 2>&1")

	return b.String()
}

// writeBatch writes a fresh batch job and its empty output file.
func (w *Windows) writeBatch(ctx context.Context, command string, args []string, cfg ExecConfig) (*BatchJob, error) {
	tmp, err := w.tempDir(ctx)
	if err != nil {
		return nil, err
	}

	ws := w.workspace.Rebase(tmp)

	dir, err := ws.Ensure()
	if err != nil {
		return nil, err
	}

	suffix := uuid.NewString()
	job := &BatchJob{
		Batch:     filepath.Join(dir, "batch-"+suffix+".bat"),
		Output:    filepath.Join(dir, "output-"+suffix),
		workspace: ws,
	}

	script := batchScript(command, args, cfg.Env, job.Output)
	if err := os.WriteFile(job.Batch, []byte(script), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write batch file: %w", err)
	}

	if err := os.WriteFile(job.Output, nil, 0o600); err != nil {
		_ = job.Cleanup()

		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w.logger.Debug("wrote batch job", zap.String("batch", job.Batch), zap.String("output", job.Output))

	return job, nil
}

func (w *Windows) helperCommand(helper string, job *BatchJob, cfg ExecConfig) *Builder {
	return Cmd(helper).Args("-wait", job.Batch).Dir(cfg.Dir)
}

// Exec runs command through the helper and returns the redirected output as Stdout and
// the helper's own error output as Stderr. The batch job is removed in every case.
func (w *Windows) Exec(ctx context.Context, command string, opts ...ExecOption) (res *BufferedResult, err error) {
	start := time.Now()
	defer func() { w.metrics.recordAttempt("exec", start, err) }()

	cfg := w.execConfig(opts)

	helper, err := w.prepare(ctx)
	if err != nil {
		return nil, err
	}

	job, err := w.writeBatch(ctx, command, nil, cfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cleanErr := job.Cleanup(); cleanErr != nil {
			w.logger.Debug("removing batch job", zap.Error(cleanErr))
		}
	}()

	res, err = w.exec.RunBuffered(ctx, w.helperCommand(helper, job, cfg).Build())
	if res != nil {
		if output, readErr := os.ReadFile(job.Output); readErr == nil {
			res.Stdout = output
		}
	}

	if err != nil {
		return res, &ProcessExecutionError{Op: "exec", Command: command, Err: err}
	}

	return res, nil
}

// Spawn writes the batch job, starts the helper and relays the output file to the
// handle's Stdout. The job is removed before the handle reports Done.
func (w *Windows) Spawn(ctx context.Context, command string, args []string, opts ...ExecOption) (*Handle, error) {
	start := time.Now()
	cfg := w.execConfig(opts)

	job, err := w.writeBatch(ctx, command, args, cfg)
	if err != nil {
		w.metrics.recordAttempt("spawn", start, err)

		return nil, err
	}

	helper, err := w.prepare(ctx)
	if err != nil {
		_ = job.Cleanup()
		w.metrics.recordAttempt("spawn", start, err)

		return nil, err
	}

	stdout, stderr := newStream(), newStream()

	proc, err := w.exec.Start(ctx, w.helperCommand(helper, job, cfg).Stderr(stderr).Build())
	if err != nil {
		_ = job.Cleanup()
		w.metrics.recordAttempt("spawn", start, err)

		return nil, &ProcessExecutionError{Op: "spawn", Command: command, Err: err}
	}

	relay := startRelay(job.Output, stdout, w.cfg.PollInterval, w.logger)

	return w.spawned(proc, stdout, stderr, job, start, func(error) {
		relay.Stop()

		if err := job.Cleanup(); err != nil {
			w.logger.Debug("removing batch job", zap.Error(err))
		}
	}), nil
}
