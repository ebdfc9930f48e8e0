package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/config"
	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/health"
)

// EditSessions bundles the edit-session tracker with what run.go needs to
// supervise its backing store.
type EditSessions struct {
	Tracker *editstate.Tracker
	// Pinger is nil for the in-memory store.
	Pinger health.HealthPinger
	Close  func() error
}

// NewEditSessions uses Redis when ACTIVITY_REDIS_URL is set and process
// memory otherwise.
func NewEditSessions(ctx context.Context, cfg *config.Config, now func() time.Time, log zerolog.Logger) (*EditSessions, error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("edit sessions kept in memory")
		return &EditSessions{
			Tracker: editstate.NewTracker(editstate.NewMemoryStore(), now),
			Close:   func() error { return nil },
		}, nil
	}
	rs, err := editstate.NewRedisStore(ctx, cfg.RedisURL, cfg.EditSessionTTL())
	if err != nil {
		return nil, err
	}
	log.Info().Dur("ttl", cfg.EditSessionTTL()).Msg("edit sessions kept in redis")
	return &EditSessions{
		Tracker: editstate.NewTracker(rs, now),
		Pinger:  rs,
		Close:   rs.Close,
	}, nil
}
