package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/logger"
)

const defaultSchedule = "@every 10m"

// Cleaner periodically purges expired verification codes and cache entries.
// The database drops them lazily on lookup; this keeps the tables from
// accumulating dead rows between lookups.
type Cleaner struct {
	db       *gorm.DB
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
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

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the purge job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:       db,
		now:      time.Now,
		schedule: defaultSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the purge job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := PurgeExpired(context.Background(), c.db, c.now()); err != nil {
			c.log.Warn("purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the purge immediately. Used in tests and during
// graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	_, err := PurgeExpired(ctx, c.db, c.now())
	return err
}

// PurgeStats captures the number of records removed per table.
type PurgeStats struct {
	VerificationCodes int64
	CacheEntries      int64
}

// PurgeExpired removes rows whose validity window lapsed before now.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (PurgeStats, error) {
	if db == nil {
		return PurgeStats{}, errors.New("purge expired: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := PurgeStats{}
	var errs error

	if result := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.VerificationCode{}); result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("purge expired: verification codes: %w", result.Error))
	} else {
		stats.VerificationCodes = result.RowsAffected
	}

	if result := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?", time.Time{}, now).
		Delete(&models.CacheEntry{}); result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("purge expired: cache entries: %w", result.Error))
	} else {
		stats.CacheEntries = result.RowsAffected
	}

	return stats, errs
}
