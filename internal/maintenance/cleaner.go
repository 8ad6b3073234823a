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

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/pkg/logger"
)

const (
	defaultInviteMaxAge   = 30 * 24 * time.Hour
	defaultPurgeRetention = 90 * 24 * time.Hour
	defaultInviteSpec     = "@daily"
	defaultPurgeSpec      = "@weekly"
)

// Cleaner runs the background maintenance jobs: expiring pending invites that
// were never accepted, and physically purging long-deleted grants.
type Cleaner struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	inviteMaxAge   time.Duration
	purgeRetention time.Duration
	inviteSpec     string
	purgeSpec      string
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

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithInviteMaxAge adjusts how long a pending invite survives before expiry.
func WithInviteMaxAge(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.inviteMaxAge = d
		}
	}
}

// WithPurgeRetention adjusts how long deleted grants are kept before physical removal.
func WithPurgeRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.purgeRetention = d
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("cleaner: db is required")
	}

	cleaner := &Cleaner{
		db:             db,
		now:            time.Now,
		inviteMaxAge:   defaultInviteMaxAge,
		purgeRetention: defaultPurgeRetention,
		inviteSpec:     defaultInviteSpec,
		purgeSpec:      defaultPurgeSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers the jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.inviteSpec, func() {
		if _, err := c.ExpireStaleInvites(context.Background()); err != nil {
			c.log.Warn("invite expiry failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(c.purgeSpec, func() {
		if _, err := c.PurgeDeletedGrants(context.Background()); err != nil {
			c.log.Warn("grant purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Used by tests and shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error
	if _, err := c.ExpireStaleInvites(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.PurgeDeletedGrants(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// ExpireStaleInvites marks pending invites older than the max age as deleted,
// freeing the (bot, email) pair for a fresh invite.
func (c *Cleaner) ExpireStaleInvites(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.inviteMaxAge)

	result := c.db.WithContext(ctx).
		Model(&models.BotAccess{}).
		Where("status = ? AND invited_at < ?", models.AccessInviteNotAccepted, cutoff).
		Updates(map[string]any{"status": models.AccessDeleted, "updated_at": c.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("cleaner: expire invites: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		c.log.Info("expired stale invites", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// PurgeDeletedGrants physically removes grants that have been deleted for
// longer than the retention window.
func (c *Cleaner) PurgeDeletedGrants(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.purgeRetention)

	result := c.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.AccessDeleted, cutoff).
		Delete(&models.BotAccess{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleaner: purge grants: %w", result.Error)
	}

	return result.RowsAffected, nil
}
