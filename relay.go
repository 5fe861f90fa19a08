package sudo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// outputRelay tails a file that another process appends to and forwards every new
// byte to out, in order. File-system events trigger a read; a ticker re-reads the
// file as well so no change is missed when events are dropped or unsupported.
type outputRelay struct {
	path     string
	out      io.Writer
	interval time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	offset  int64

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// startRelay forwards the current content of path and then starts following it.
func startRelay(path string, out io.Writer, interval time.Duration, logger *zap.Logger) *outputRelay {
	r := &outputRelay{
		path:     path,
		out:      out,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("file watcher unavailable, polling only", zap.Error(err))
	} else if err := watcher.Add(path); err != nil {
		logger.Debug("watching output file failed, polling only", zap.String("path", path), zap.Error(err))
		_ = watcher.Close()
	} else {
		r.watcher = watcher
	}

	r.tail()

	go r.run()

	return r
}

func (r *outputRelay) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)

	if r.watcher != nil {
		events = r.watcher.Events
		errs = r.watcher.Errors
	}

	for {
		select {
		case <-r.stopCh:
			return

		case event, ok := <-events:
			if !ok {
				events = nil

				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				r.tail()
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			r.logger.Debug("output watcher error", zap.Error(err))

		case <-ticker.C:
			r.tail()
		}
	}
}

// Stop ends the relay after forwarding whatever was appended since the last read.
// Only the first call has an effect.
func (r *outputRelay) Stop() {
	r.once.Do(func() {
		close(r.stopCh)
		<-r.doneCh

		r.tail()

		if r.watcher != nil {
			if err := r.watcher.Close(); err != nil {
				r.logger.Debug("closing output watcher", zap.Error(err))
			}
		}
	})
}

// tail forwards bytes past the current offset. A truncated file is read from the start.
func (r *outputRelay) tail() {
	if err := r.readNew(); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("reading output file", zap.String("path", r.path), zap.Error(err))
	}
}

func (r *outputRelay) readNew() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat output file: %w", err)
	}

	if info.Size() < r.offset {
		r.offset = 0
	}

	if info.Size() == r.offset {
		return nil
	}

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek output file: %w", err)
	}

	n, err := io.Copy(r.out, io.LimitReader(f, info.Size()-r.offset))
	r.offset += n

	return err
}
