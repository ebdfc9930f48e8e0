package factory

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/config"
	"github.com/FrithiofJensen/openproject/internal/notify"
)

const webhookTimeout = 10 * time.Second

// NewNotifier builds the bus, the dispatcher publishing onto it and the
// worker draining it. Without a webhook URL notifications are only logged.
func NewNotifier(cfg *config.Config, log zerolog.Logger) (notify.Dispatcher, *notify.Worker) {
	bus := notify.NewBus(cfg.NotifyBuffer)

	var sender notify.Sender
	if cfg.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.WebhookURL, webhookTimeout)
	} else {
		sender = notify.NewLogSender(log)
	}

	worker := notify.NewWorker(bus, sender, notify.WorkerConfig{MaxAttempts: cfg.NotifyMaxAttempts, Shards: cfg.NotifyShards}, log.With().Str("component", "notify").Logger())
	return notify.NewBusDispatcher(bus, log), worker
}
