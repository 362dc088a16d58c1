package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/pkg/logger"
)

const (
	defaultSweepSpec = "@every 5m"
	sweepTimeout     = time.Minute

	// JobCacheSweep names the expired cache row purge in metrics and job history.
	JobCacheSweep = "cache_sweep"
)

// Sweeper removes expired entries. cache.DatabaseStore satisfies it.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Cleaner schedules housekeeping for the database cache fallback.
type Cleaner struct {
	sweepers []Sweeper
	cron     *cron.Cron
	log      *zap.Logger

	sweepSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSweepSchedule overrides the cron specification for the cache sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. Nil sweepers are ignored; with none left the
// cleaner does nothing.
func NewCleaner(sweepers []Sweeper, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sweepSchedule: defaultSweepSpec,
		log:           logger.WithModule("maintenance"),
	}
	for _, s := range sweepers {
		if s != nil {
			cleaner.sweepers = append(cleaner.sweepers, s)
		}
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the sweep job and launches the scheduler.
func (c *Cleaner) Start() error {
	if len(c.sweepers) == 0 {
		return nil
	}

	if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := c.RunOnce(ctx); err != nil {
			c.log.Warn("cache sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled", zap.String("cache_sweep", c.sweepSchedule))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce sweeps every store and records the run.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	var (
		errs    error
		removed int64
	)
	for _, sweeper := range c.sweepers {
		n, err := sweeper.SweepExpired(ctx)
		removed += n
		errs = multierr.Append(errs, err)
	}
	monitoring.RecordJobRun(JobCacheSweep, errs, time.Since(start))

	if errs == nil && removed > 0 {
		c.log.Debug("expired cache entries removed", zap.Int64("count", removed))
	}
	return errs
}
