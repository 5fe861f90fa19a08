package sudo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// New selects the elevation strategy for the platform env reports, or the one forced
// with WithTargetOS. The platform is decided once; the returned Sudoer never switches.
func New(env Environment, opts ...Option) (Sudoer, error) {
	cfg, err := buildConfig(env, opts)
	if err != nil {
		return nil, err
	}

	switch cfg.TargetOS {
	case OSDarwin:
		return newDarwin(env, cfg), nil
	case OSLinux:
		return newLinux(env, cfg), nil
	case OSWindows:
		return newWindows(env, cfg), nil
	case OSUnknown:
		fallthrough
	default:
		return nil, &PlatformUnsupportedError{Platform: cfg.TargetOS.String()}
	}
}

// NewDarwin returns the macOS strategy regardless of the host platform.
func NewDarwin(env Environment, opts ...Option) (*Darwin, error) {
	cfg, err := buildConfig(env, append([]Option{WithTargetOS(OSDarwin)}, opts...))
	if err != nil {
		return nil, err
	}

	return newDarwin(env, cfg), nil
}

// NewLinux returns the Linux strategy regardless of the host platform.
func NewLinux(env Environment, opts ...Option) (*Linux, error) {
	cfg, err := buildConfig(env, append([]Option{WithTargetOS(OSLinux)}, opts...))
	if err != nil {
		return nil, err
	}

	return newLinux(env, cfg), nil
}

// NewWindows returns the Windows strategy regardless of the host platform.
func NewWindows(env Environment, opts ...Option) (*Windows, error) {
	cfg, err := buildConfig(env, append([]Option{WithTargetOS(OSWindows)}, opts...))
	if err != nil {
		return nil, err
	}

	return newWindows(env, cfg), nil
}

func buildConfig(env Environment, opts []Option) (Config, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.osSet && env != nil {
		cfg.TargetOS = env.TargetOS()
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// base carries what every strategy shares: configuration, the executor, the workspace
// and the set of live processes Cleanup kills.
type base struct {
	cfg       Config
	exec      *Executor
	logger    *zap.Logger
	metrics   *metrics
	workspace *Workspace

	mu      sync.Mutex
	handles map[*Handle]struct{}
}

func newBase(env Environment, cfg Config) *base {
	return &base{
		cfg:       cfg,
		exec:      NewExecutor(env),
		logger:    cfg.Logger.Named(cfg.TargetOS.String()),
		metrics:   newMetrics(cfg.Registerer, cfg.TargetOS),
		workspace: NewWorkspace(cfg.TempDir, Hash(cfg.Name, nil)),
		handles:   make(map[*Handle]struct{}),
	}
}

// Platform returns the platform this strategy elevates on.
func (b *base) Platform() TargetOS {
	return b.cfg.TargetOS
}

// Workspace returns the per-instance temporary directory.
func (b *base) Workspace() *Workspace {
	return b.workspace
}

// Name returns the display name.
func (b *base) Name() string {
	return b.cfg.Name
}

func (b *base) execConfig(opts []ExecOption) ExecConfig {
	return newExecConfig(b.cfg.Env, opts)
}

func (b *base) runShell(ctx context.Context, line string, cfg ExecConfig) (*BufferedResult, error) {
	b.logger.Debug("running", zap.String("line", line))

	return b.exec.RunShell(ctx, b.cfg.TargetOS, line, cfg)
}

// track registers h until it is done, so Cleanup can reach it.
func (b *base) track(h *Handle) {
	b.mu.Lock()
	b.handles[h] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-h.Done()

		b.mu.Lock()
		delete(b.handles, h)
		b.mu.Unlock()
	}()
}

// Cleanup kills every spawned process that is still alive.
func (b *base) Cleanup() error {
	b.mu.Lock()
	live := make([]*Handle, 0, len(b.handles))
	for h := range b.handles {
		live = append(live, h)
	}
	b.mu.Unlock()

	for _, h := range live {
		b.logger.Debug("killing spawned process", zap.Int("pid", h.Pid()))
		_ = h.Kill()
	}

	return nil
}

// spawned wraps proc into a tracked Handle. after hooks run once the process exited.
func (b *base) spawned(proc Process, stdout, stderr *stream, job *BatchJob, start time.Time, after ...func(error)) *Handle {
	h := newHandle(proc, stdout, stderr, b.logger)
	h.job = job

	hooks := append([]func(error){}, after...)
	hooks = append(hooks, func(err error) {
		b.metrics.recordAttempt("spawn", start, err)
	})

	h.watch(hooks...)
	b.track(h)

	return h
}
