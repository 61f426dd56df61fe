// Package daemon runs check passes on a timer and whenever a project file changes.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/msageha/taskcoord/internal/coordinator"
	"github.com/msageha/taskcoord/internal/lock"
)

// Checker is the part of the coordinator the daemon drives.
type Checker interface {
	CheckAll(ctx context.Context, push bool) (coordinator.Report, error)
}

type Options struct {
	ProjectsDir string
	Interval    time.Duration
	Push        bool
	// Lock, when set, is held for the daemon's lifetime.
	Lock            *lock.FileLock
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

type Daemon struct {
	checker Checker
	opts    Options
	logger  *zap.Logger

	watcher *fsnotify.Watcher
	ticker  *time.Ticker
	passes  singleflight.Group
	count   atomic.Int64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

func New(checker Checker, opts Options) *Daemon {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daemon{
		checker: checker,
		opts:    opts,
		logger:  logger.Named("watch"),
	}
}

// Run blocks until ctx is done, then shuts down and returns nil. Errors are
// returned only for startup failures.
func (d *Daemon) Run(ctx context.Context) error {
	if d.opts.Lock != nil {
		if err := d.opts.Lock.TryLock(); err != nil {
			return fmt.Errorf("coordinator lock: %w", err)
		}
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.logger.Info("watch_starting", zap.Int("pid", os.Getpid()), zap.String("projects_dir", d.opts.ProjectsDir),
		zap.Duration("interval", d.opts.Interval), zap.Bool("push", d.opts.Push))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.cleanup()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	d.watcher = watcher

	if err := os.MkdirAll(d.opts.ProjectsDir, 0755); err != nil {
		d.cleanup()
		return fmt.Errorf("ensure dir %s: %w", d.opts.ProjectsDir, err)
	}
	if err := watcher.Add(d.opts.ProjectsDir); err != nil {
		d.cleanup()
		return fmt.Errorf("watch %s: %w", d.opts.ProjectsDir, err)
	}

	d.ticker = time.NewTicker(d.opts.Interval)

	d.runPass("startup")

	d.wg.Add(2)
	go d.fsnotifyLoop()
	go d.tickerLoop()
	d.logger.Info("watch_ready")

	<-d.ctx.Done()
	d.Shutdown()
	return nil
}

// Passes reports how many check passes have completed.
func (d *Daemon) Passes() int64 {
	return d.count.Load()
}

// runPass runs CheckAll unless one is already in flight, in which case it waits
// for and shares that pass.
func (d *Daemon) runPass(trigger string) {
	_, _, shared := d.passes.Do("check-all", func() (any, error) {
		start := time.Now()
		rep, err := d.checker.CheckAll(d.ctx, d.opts.Push)
		d.count.Add(1)
		if err != nil {
			d.logger.Error("pass_failed", zap.String("trigger", trigger), zap.Error(err))
			return nil, err
		}
		fields := []zap.Field{
			zap.String("trigger", trigger),
			zap.Int("projects", rep.Checked),
			zap.Int("stuck", len(rep.Candidates)),
			zap.Int("errors", len(rep.Errors)),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err := rep.Err(); err != nil {
			d.logger.Warn("pass_routing_failures", append(fields, zap.Error(err))...)
		} else {
			d.logger.Info("pass_done", fields...)
		}
		return nil, nil
	})
	if shared {
		d.logger.Debug("pass_coalesced", zap.String("trigger", trigger))
	}
}

func (d *Daemon) fsnotifyLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !isProjectEvent(event) {
				continue
			}
			d.logger.Debug("fsnotify_event", zap.Stringer("op", event.Op), zap.String("file", event.Name))
			d.runPass("file:" + filepath.Base(event.Name))
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("fsnotify_error", zap.Error(err))
		}
	}
}

func isProjectEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(event.Name)
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == ".json"
}

func (d *Daemon) tickerLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.ticker.C:
			d.runPass("tick")
		}
	}
}

// Shutdown stops both loops and waits for an in-flight pass, up to
// ShutdownTimeout. Safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.logger.Info("shutdown_started")
		if d.cancel != nil {
			d.cancel()
		}
		if d.ticker != nil {
			d.ticker.Stop()
		}
		if d.watcher != nil {
			d.watcher.Close()
		}

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			d.logger.Info("all_goroutines_drained")
		case <-time.After(d.opts.ShutdownTimeout):
			d.logger.Warn("shutdown_timeout", zap.Duration("timeout", d.opts.ShutdownTimeout))
		}

		d.cleanup()
		d.logger.Info("watch_stopped")
	})
}

func (d *Daemon) cleanup() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.opts.Lock != nil {
		if err := d.opts.Lock.Unlock(); err != nil {
			d.logger.Warn("unlock_failed", zap.Error(err))
		}
	}
}
