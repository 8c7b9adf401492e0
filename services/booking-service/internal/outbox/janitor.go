package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/homefix/calbook/libs/db"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
)

// Janitor periodically deletes published outbox rows older than Retention.
type Janitor struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	schedule  string
	retention time.Duration
	now       func() time.Time
}

func NewJanitor(pool *db.Pool, repo *Repository, logger *slog.Logger, schedule string, retention time.Duration) *Janitor {
	if schedule == "" {
		schedule = "@hourly"
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Janitor{pool: pool, repo: repo, logger: logger, schedule: schedule, retention: retention, now: time.Now}
}

// Run blocks until ctx is done, purging on the configured cron schedule.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, func() { j.purge(ctx) }); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (j *Janitor) purge(ctx context.Context) {
	cutoff := j.now().Add(-j.retention)
	var removed int64
	err := j.pool.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := j.repo.PurgePublished(ctx, tx, cutoff)
		removed = n
		return err
	})
	if err != nil {
		j.logger.Error("outbox purge failed", "err", err)
		return
	}
	if removed > 0 {
		j.logger.Info("outbox purged", "rows", removed, "cutoff", cutoff)
	}
}

// ValidateSchedule reports whether spec parses as a standard cron schedule.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
