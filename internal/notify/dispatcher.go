package notify

import (
	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/metrics"
)

// Dispatcher accepts notifications without blocking the caller.
type Dispatcher interface {
	Dispatch(n Notification)
}

// BusDispatcher publishes onto a Bus and counts drops.
type BusDispatcher struct {
	bus *Bus
	log zerolog.Logger
}

func NewBusDispatcher(bus *Bus, log zerolog.Logger) *BusDispatcher {
	return &BusDispatcher{bus: bus, log: log}
}

func (d *BusDispatcher) Dispatch(n Notification) {
	if d.bus.Publish(n) {
		return
	}
	metrics.Notifications.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("subject_id", n.SubjectID).
		Str("entry_id", n.EntryID).
		Msg("notification bus full, dropping")
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Dispatch(Notification) {}
