// Package janitor periodically deletes abandoned quiz sessions.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Purger deletes unfinished sessions created before cutoff and reports how
// many were removed. Durable attempt records must be left alone.
type Purger interface {
	PurgeStaleSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls the sweep cadence.
type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
	// Timeout bounds one sweep. Defaults to Interval.
	Timeout time.Duration
}

// Janitor runs the sweep on a gocron scheduler.
type Janitor struct {
	scheduler *gocron.Scheduler
	purger    Purger
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a stopped Janitor.
func New(purger Purger, cfg Config, logger *slog.Logger) (*Janitor, error) {
	if purger == nil {
		return nil, errors.New("janitor: purger required")
	}
	if cfg.Interval <= 0 || cfg.StaleAfter <= 0 {
		return nil, errors.New("janitor: interval and stale_after must be > 0")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		purger:    purger,
		cfg:       cfg,
		logger:    logger.With("component", "janitor"),
		now:       time.Now,
	}, nil
}

// Start schedules the sweep and runs the first one immediately.
func (j *Janitor) Start() error {
	_, err := j.scheduler.Every(j.cfg.Interval).SingletonMode().Do(j.sweep)
	if err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

// Stop halts the scheduler. A sweep already running is not interrupted.
func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

// RunOnce performs a single sweep.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.cfg.StaleAfter)
	return j.purger.PurgeStaleSessions(ctx, cutoff)
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("purge stale sessions failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("purged stale sessions", "count", n, "duration", time.Since(start))
	}
}
