// Package sweeper reclaims dataset stores once they outlive the retention
// window.
//
// A Sweeper scans the data directory immediately when it starts and then
// once per interval until its context is cancelled. Files are deleted
// unconditionally when they are old enough, even if a query holds them open:
// the open handle keeps working and new opens fail with ErrDatasetNotFound.
package sweeper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/paths"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Config controls what a Sweeper deletes and how often it looks.
type Config struct {
	// Dir is the flat directory holding the stores.
	Dir string
	// Retention is the age a file must exceed to be deleted.
	Retention time.Duration
	// Interval is the pause between scans.
	Interval time.Duration
	// Reserved identities are never deleted.
	Reserved []types.Identity
	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// ConfigFrom derives a sweeper Config from the store configuration.
func ConfigFrom(cfg types.Config) Config {
	return Config{
		Dir:       cfg.DataDir,
		Retention: cfg.Retention,
		Interval:  cfg.SweepInterval,
		Reserved:  append([]types.Identity(nil), cfg.Reserved...),
	}
}

// Report summarizes one scan.
type Report struct {
	Scanned      int      `json:"scanned"`
	Deleted      int      `json:"deleted"`
	Retained     int      `json:"retained"`
	Failed       int      `json:"failed"`
	DeletedFiles []string `json:"deleted_files,omitempty"`
	Err          error    `json:"-"`
}

// Sweeper deletes expired files from a directory on a fixed cadence.
type Sweeper struct {
	cfg      Config
	logger   *zap.Logger
	reserved map[types.Identity]bool

	// remove deletes one file; tests replace it to inject failures.
	remove func(path string) error

	scanMu sync.Mutex // one scan at a time

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Sweeper for cfg. Zero Retention or Interval fall back to the
// defaults. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Sweeper {
	if cfg.Retention <= 0 {
		cfg.Retention = types.DefaultRetention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = types.DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reserved := make(map[types.Identity]bool, len(cfg.Reserved))
	for _, id := range cfg.Reserved {
		if parsed, err := types.ParseIdentity(string(id)); err == nil {
			id = parsed
		}
		reserved[id] = true
	}

	return &Sweeper{
		cfg:      cfg,
		logger:   logger.Named("sweeper"),
		reserved: reserved,
		remove:   os.Remove,
	}
}

// SweepOnce scans the directory a single time and deletes every store file
// older than the retention window. Store files are stores, their SQLite
// sidecars, and leftover build files; anything else in the directory is left
// alone. Files belonging to a reserved identity are never deleted. Per-file
// failures are logged and counted; they never stop the scan.
func (s *Sweeper) SweepOnce() Report {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	var report Report
	now := s.cfg.Now()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		s.logger.Error("scan failed", zap.String("dir", s.cfg.Dir), zap.Error(err))
		report.Err = err
		return report
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		owner, ok := paths.OwnerFromFileName(name)
		if !ok {
			continue
		}
		path := filepath.Join(s.cfg.Dir, name)

		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("file vanished during scan", zap.String("path", path))
			continue
		}
		report.Scanned++
		if s.reserved[owner] {
			report.Retained++
			continue
		}
		if err != nil {
			report.Failed++
			s.logger.Warn("stat failed", zap.String("path", path), zap.Error(err))
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= s.cfg.Retention {
			report.Retained++
			continue
		}

		if err := s.remove(path); err != nil {
			report.Failed++
			s.logger.Warn("delete failed", zap.String("path", path), zap.Duration("age", age), zap.Error(err))
			continue
		}
		report.Deleted++
		report.DeletedFiles = append(report.DeletedFiles, name)
		s.logger.Info("deleted expired file", zap.String("path", path), zap.Duration("age", age))
	}

	s.logger.Debug("scan complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed))
	return report
}

// Run scans immediately, then every Interval, until ctx is cancelled. It
// returns after the scheduler has stopped and any in-flight scan finished.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started",
		zap.String("dir", s.cfg.Dir),
		zap.Duration("retention", s.cfg.Retention),
		zap.Duration("interval", s.cfg.Interval))

	s.SweepOnce()

	engine := cron.New(
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	engine.Schedule(every(s.cfg.Interval), cron.FuncJob(func() {
		s.SweepOnce()
	}))
	engine.Start()

	<-ctx.Done()
	<-engine.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// Start runs the sweeper in a background goroutine. Calling Start on a
// running sweeper has no effect.
func (s *Sweeper) Start(ctx context.Context) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels a started sweeper and waits for it to finish. Stop is idempotent.
func (s *Sweeper) Stop() {
	s.lifeMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
