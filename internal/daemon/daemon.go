package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"groovy/internal/config"
	"groovy/internal/engine"
	"groovy/internal/logging"
	"groovy/internal/observability"
	"groovy/internal/scanner"
	"groovy/internal/tracking"
)

// Daemon coordinates the tracking services and enforces single-instance
// execution via a lock file in the data directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *tracking.Store
	engine  *engine.Engine
	scans   *scanner.Logger
	metrics *observability.Metrics

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	api     *apiServer
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Health       tracking.HealthSummary
	ItemStats    map[tracking.ItemStatus]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *tracking.Store, eng *engine.Engine, scans *scanner.Logger, metrics *observability.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || scans == nil {
		return nil, errors.New("daemon requires config, store, engine, and scan logger")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "groovyd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   eng,
		scans:    scans,
		metrics:  metrics,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another groovy daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("groovy daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("groovy daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Engine exposes the transition engine for transport layers.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// Scans exposes the scan logger for transport layers.
func (d *Daemon) Scans() *scanner.Logger {
	return d.scans
}

// Store exposes the tracking store for transport layers.
func (d *Daemon) Store() *tracking.Store {
	return d.store
}

// APIAddr returns the bound HTTP address, or empty when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Health = health
	} else {
		d.logger.Warn("store health check failed", logging.Error(err))
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.ItemStats = stats
	}
	return status
}
