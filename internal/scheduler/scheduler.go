// Package scheduler runs the periodic jobs: state snapshots to disk and
// refreshing subscribed calendars into an in-memory occurrence cache.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"concierge/internal/backup"
	"concierge/internal/ics"
	appLog "concierge/internal/log"
	"concierge/internal/metrics"
	"concierge/internal/model"
)

// Disabled turns a job off when used as its cron spec.
const Disabled = "-"

const defaultHorizonDays = 14

// StateSource yields the state to snapshot.
type StateSource interface {
	Snapshot() *model.State
}

// Config selects what the scheduler runs and when.
type Config struct {
	BackupCron       string
	BackupDir        string
	SubscriptionCron string
	Sources          []ics.Source
	Location         *time.Location
	// HorizonDays is how far ahead subscription occurrences are expanded.
	HorizonDays int
}

type Scheduler struct {
	cfg     Config
	cron    *cron.Cron
	state   StateSource
	fetcher *ics.Fetcher
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.RWMutex
	occurrences []model.Occurrence
	lastSync    time.Time
}

// New builds a scheduler and registers its jobs. Specs are validated here
// so a bad config fails at startup.
func New(cfg Config, state StateSource, fetcher *ics.Fetcher, m *metrics.Metrics) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = defaultHorizonDays
	}
	if fetcher == nil {
		fetcher = ics.NewFetcher("", nil)
	}

	s := &Scheduler{
		cfg:     cfg,
		state:   state,
		fetcher: fetcher,
		metrics: m,
		now:     time.Now,
	}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	if cfg.BackupCron != "" && cfg.BackupCron != Disabled {
		if _, err := s.cron.AddFunc(cfg.BackupCron, func() {
			if _, err := s.RunBackup(context.Background()); err != nil {
				appLog.Error("scheduled backup failed", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("scheduler: backup_cron %q: %w", cfg.BackupCron, err)
		}
	}
	if cfg.SubscriptionCron != "" && cfg.SubscriptionCron != Disabled && len(cfg.Sources) > 0 {
		if _, err := s.cron.AddFunc(cfg.SubscriptionCron, func() {
			_ = s.SyncSubscriptions(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("scheduler: subscription_cron %q: %w", cfg.SubscriptionCron, err)
		}
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	appLog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs or ctx, whichever is
// first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BackupName returns the snapshot file name for t.
func BackupName(t time.Time) string {
	return "concierge-" + t.Format("20060102-150405") + ".json"
}

// RunBackup writes a snapshot of the state into the backup directory and
// returns its path.
func (s *Scheduler) RunBackup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.state == nil {
		return "", errors.New("scheduler: no state source")
	}
	started := time.Now()

	data, err := backup.Export(s.state.Snapshot())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.cfg.BackupDir, 0o700); err != nil {
		return "", fmt.Errorf("scheduler: backup dir: %w", err)
	}

	path := filepath.Join(s.cfg.BackupDir, BackupName(s.now().In(s.cfg.Location)))
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("scheduler: write backup: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BackupDuration.Observe(time.Since(started).Seconds())
	}
	appLog.Info("backup written", "path", path, "bytes", len(data))
	return path, nil
}

// SyncSubscriptions fetches every source, expands its events from the
// start of today over the horizon and replaces the cache. Sources that
// fail keep nothing in the new cache; the error lists them.
func (s *Scheduler) SyncSubscriptions(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.SubscriptionSyncs.Inc()
	}

	results, errs := s.fetcher.FetchAll(ctx, s.cfg.Sources)

	var parsed []ics.ParsedEvent
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", res.Source.ID, err))
			appLog.Error("subscription parse failed", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, evs...)
	}

	now := s.now().In(s.cfg.Location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: s.cfg.Location,
		RangeStart:      from,
		RangeEnd:        from.AddDate(0, 0, s.cfg.HorizonDays),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.occurrences = expanded.Occurrences
	s.lastSync = now
	s.mu.Unlock()

	if s.metrics != nil && len(errs) > 0 {
		s.metrics.SyncErrors.Add(float64(len(errs)))
	}
	appLog.Info("subscriptions synced",
		"sources", len(s.cfg.Sources),
		"occurrences", len(expanded.Occurrences),
		"errors", len(errs),
	)
	return errors.Join(errs...)
}

// Occurrences returns cached subscription occurrences with from <= start < to.
func (s *Scheduler) Occurrences(from, to time.Time) []model.Occurrence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Occurrence, 0)
	for _, o := range s.occurrences {
		if !o.Start.Before(from) && o.Start.Before(to) {
			out = append(out, o)
		}
	}
	return out
}

// LastSync reports when the cache was last refreshed.
func (s *Scheduler) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".concierge-backup-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
