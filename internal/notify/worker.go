package notify

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/metrics"
)

// WorkerConfig controls delivery retries.
type WorkerConfig struct {
	MaxAttempts int           // total attempts per notification
	BaseBackoff time.Duration // first retry delay
	MaxBackoff  time.Duration // cap on retry delay
	Shards      int           // parallel deliveries; one subject is always served by one shard
}

// Worker drains a Bus and delivers through a Sender.
type Worker struct {
	bus    *Bus
	sender Sender
	cfg    WorkerConfig
	log    zerolog.Logger
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(bus *Bus, sender Sender, cfg WorkerConfig, log zerolog.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	return &Worker{bus: bus, sender: sender, cfg: cfg, log: log}
}

// Run delivers notifications until ctx is canceled. Notifications of one
// subject are delivered in publish order. Deliveries already handed to a
// shard finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("max_attempts", w.cfg.MaxAttempts).Int("shards", w.cfg.Shards).Msg("notification worker starting")
	pool := NewShardPool(ShardConfig{Shards: w.cfg.Shards, EnqueueTimeout: time.Second}, w.log)
	defer pool.Stop()

	ch := w.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("notification worker stopping")
			return ctx.Err()
		case n := <-ch:
			err := pool.Submit(ctx, n.SubjectID, func(jctx context.Context) { w.deliver(jctx, n) })
			if err != nil && ctx.Err() == nil {
				metrics.Notifications.WithLabelValues("dropped").Inc()
				w.log.Warn().Err(err).Str("subject_id", n.SubjectID).Str("entry_id", n.EntryID).Msg("notification dropped")
			}
		}
	}
}

func (w *Worker) deliver(ctx context.Context, n Notification) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = w.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(w.cfg.MaxAttempts-1)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return w.sender.Send(ctx, n)
	}, policy)
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		w.log.Error().Err(err).
			Str("subject_id", n.SubjectID).
			Str("entry_id", n.EntryID).
			Int("attempts", attempts).
			Msg("notification delivery failed")
		return
	}
	metrics.Notifications.WithLabelValues("delivered").Inc()
	w.log.Debug().Str("entry_id", n.EntryID).Int("attempts", attempts).Msg("notification delivered")
}
