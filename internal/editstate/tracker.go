package editstate

import (
	"context"
	"time"
)

// Tracker applies machine transitions against a Store. Callers check
// authorization before calling; rejected requests never reach the tracker.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker returns a tracker over store. A nil now uses time.Now.
func NewTracker(store Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now}
}

// Current returns the state without changing it.
func (t *Tracker) Current(ctx context.Context, actorID, entryID string) (State, error) {
	return t.store.Get(ctx, actorID, entryID)
}

// BeginEdit moves the entry to Edit for actorID.
func (t *Tracker) BeginEdit(ctx context.Context, actorID, entryID string) (State, error) {
	return t.fire(ctx, actorID, entryID, EventEdit)
}

// Cancel moves the entry back to Show for actorID.
func (t *Tracker) Cancel(ctx context.Context, actorID, entryID string) (State, error) {
	return t.fire(ctx, actorID, entryID, EventCancel)
}

// Committed records a successful update by actorID.
func (t *Tracker) Committed(ctx context.Context, actorID, entryID string) (State, error) {
	return t.fire(ctx, actorID, entryID, EventCommit)
}

func (t *Tracker) fire(ctx context.Context, actorID, entryID string, ev Event) (State, error) {
	cur, err := t.store.Get(ctx, actorID, entryID)
	if err != nil {
		return State{}, err
	}
	next, err := Next(cur, ev, t.now())
	if err != nil {
		return State{}, err
	}
	if next == cur {
		return cur, nil
	}
	if err := t.store.Put(ctx, next); err != nil {
		return State{}, err
	}
	return next, nil
}
