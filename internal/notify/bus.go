// Package notify delivers fire-and-forget notifications about new entries.
//
// Callers publish onto a Bus without blocking; a Worker drains the bus and
// hands each notification to a Sender with bounded retries. A full bus drops
// the notification; the mutation that caused it still succeeds.
package notify

import "time"

// Kind names the event a notification reports.
type Kind string

const KindEntryCreated Kind = "entry_created"

// Notification carries ids only; receivers fetch the record if they need it.
type Notification struct {
	Kind      Kind      `json:"kind"`
	SubjectID string    `json:"subjectId"`
	EntryID   string    `json:"entryId"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bus is a lightweight in-process queue backed by a buffered channel.
type Bus struct {
	ch chan Notification
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{ch: make(chan Notification, buffer)}
}

// Publish attempts to enqueue without blocking.
// Returns true if published, false if the buffer is full.
func (b *Bus) Publish(n Notification) bool {
	select {
	case b.ch <- n:
		return true
	default:
		return false
	}
}

// Subscribe returns a read-only channel for consumers.
func (b *Bus) Subscribe() <-chan Notification {
	return b.ch
}
