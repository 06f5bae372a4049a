package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"datatalk-backend/config"
	"datatalk-backend/internal/store"
)

const cleanupTimeout = time.Minute

// NewScheduler registers the idle-session cleanup job. Schedules use the
// six-field form with seconds, e.g. "0 */10 * * * *".
func NewScheduler(lc fx.Lifecycle, cfg *config.Config, sessions store.SessionStore) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	schedule := cfg.Session.CleanupSchedule
	ttl := cfg.Session.TTL
	if _, err := c.AddFunc(schedule, func() { CleanupIdleSessions(context.Background(), sessions, ttl, time.Now()) }); err != nil {
		log.Error().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil, err
	}
	log.Info().Str("schedule", schedule).Dur("ttl", ttl).Msg("Scheduled idle session cleanup")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})
	return c, nil
}

// CleanupIdleSessions deletes sessions untouched for longer than ttl. A
// non-positive ttl disables expiry.
func CleanupIdleSessions(ctx context.Context, sessions store.SessionStore, ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	deleted, err := sessions.DeleteIdleSessions(ctx, now.Add(-ttl))
	if err != nil {
		log.Error().Err(err).Msg("Error during scheduled session cleanup")
		return 0
	}
	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Deleted idle sessions")
	}
	return deleted
}
