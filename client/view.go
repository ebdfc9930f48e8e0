package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FrithiofJensen/openproject/internal/feed"
)

// View is a local replica of one subject's feed, kept current by applying
// the server's operations the way a browser tab does.
//
// While an entry is being edited through the view, ReplaceItem operations
// for it are held back so the edit form is never overwritten. They are
// applied when the edit is cancelled; a save supersedes them.
type View struct {
	c         *Client
	subjectID string

	mu      sync.Mutex
	idx     *feed.Index
	cursor  Cursor
	editing map[string]bool
	pending map[string]Operation
	closed  bool
}

// OpenView renders the subject's feed and positions a cursor at it.
func (c *Client) OpenView(ctx context.Context, subjectID string, filter Filter) (*View, error) {
	v := &View{c: c, subjectID: subjectID}
	if err := v.load(ctx, filter); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) load(ctx context.Context, filter Filter) error {
	res, err := v.c.Index(ctx, v.subjectID, filter)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.idx = feed.Restore(res.Feed)
	v.cursor = Cursor{LastUpdate: res.LastUpdate, Filter: res.Filter, SortDirection: res.Feed.Direction}
	v.editing = make(map[string]bool)
	v.pending = make(map[string]Operation)
	return nil
}

// Reload discards local state and renders the feed again.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	filter := v.cursor.Filter
	v.mu.Unlock()
	return v.load(ctx, filter)
}

// Feed returns a snapshot of the local feed.
func (v *View) Feed() Feed {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.idx.Feed()
}

// Cursor returns the position the next Refresh syncs from.
func (v *View) Cursor() Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Editing reports whether entryID has an open edit in this view.
func (v *View) Editing(entryID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editing[entryID]
}

// Refresh fetches and applies operations since the cursor. It returns how
// many operations arrived.
func (v *View) Refresh(ctx context.Context) (int, error) {
	res, err := v.c.Sync(ctx, v.subjectID, v.Cursor())
	if err != nil {
		return 0, err
	}
	return len(res.Operations), v.apply(res.Operations, res.LastUpdate)
}

// Post adds a note and applies the operations returned with it.
func (v *View) Post(ctx context.Context, notes string, notify *bool) (*Entry, error) {
	res, err := v.c.CreateEntry(ctx, v.subjectID, notes, CreateEntryOptions{Notify: notify, Cursor: v.Cursor()})
	if err != nil {
		return nil, err
	}
	if err := v.apply(res.Operations, res.LastUpdate); err != nil {
		return res.Entry, err
	}
	return res.Entry, nil
}

// Edit opens an edit session on entryID.
func (v *View) Edit(ctx context.Context, entryID string) error {
	if _, err := v.c.BeginEdit(ctx, v.subjectID, entryID); err != nil {
		return err
	}
	v.mu.Lock()
	v.editing[entryID] = true
	v.mu.Unlock()
	return nil
}

// Cancel closes the edit session and applies any content change that
// arrived meanwhile.
func (v *View) Cancel(ctx context.Context, entryID string) error {
	if _, err := v.c.CancelEdit(ctx, v.subjectID, entryID); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.editing, entryID)
	op, ok := v.pending[entryID]
	if !ok {
		return nil
	}
	delete(v.pending, entryID)
	return v.applyLocked(op)
}

// Save writes new notes for entryID and shows the saved entry.
func (v *View) Save(ctx context.Context, entryID, notes string) (*Entry, error) {
	res, err := v.c.UpdateEntry(ctx, v.subjectID, entryID, notes)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.editing, entryID)
	delete(v.pending, entryID)
	for _, op := range res.Operations {
		if err := v.applyLocked(op); err != nil {
			return res.Entry, err
		}
	}
	return res.Entry, nil
}

// Follow keeps the view current from the push stream until ctx is done.
func (v *View) Follow(ctx context.Context) error {
	return v.c.Subscribe(ctx, v.subjectID, v.Cursor(), func(msg StreamMessage) error {
		v.mu.Lock()
		closed := v.closed
		v.mu.Unlock()
		if closed {
			return errViewClosed
		}
		return v.apply(msg.Operations, msg.LastUpdate)
	})
}

// Close makes a running Follow return after its next batch.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// apply replays a batch on a copy of the index and swaps it in only when
// every operation fits, so a failed batch leaves the view and its cursor
// untouched.
func (v *View) apply(ops []Operation, lastUpdate time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := v.idx.Clone()
	held := make(map[string]Operation)
	var (
		applied []OpKind
		dropped []string
	)
	for _, op := range ops {
		switch {
		case op.Kind == feed.OpReplaceItem && v.editing[op.EntryID]:
			held[op.EntryID] = op
			continue
		case op.Kind == feed.OpRemoveItem:
			delete(held, op.EntryID)
			dropped = append(dropped, op.EntryID)
		case op.Kind != feed.OpReplaceItem && next.Contains(op.EntryID):
			// created during the previous sync and sent again
			continue
		}
		if err := next.Apply(op); err != nil {
			return fmt.Errorf("view out of sync, reload: %w", err)
		}
		applied = append(applied, op.Kind)
	}

	v.idx = next
	for _, k := range applied {
		operationsApplied.WithLabelValues(string(k)).Inc()
	}
	for id, op := range held {
		v.pending[id] = op
	}
	for _, id := range dropped {
		delete(v.pending, id)
		delete(v.editing, id)
	}
	if !lastUpdate.IsZero() {
		v.cursor.LastUpdate = lastUpdate
	}
	return nil
}

func (v *View) applyLocked(op Operation) error {
	if err := v.idx.Apply(op); err != nil {
		return fmt.Errorf("view out of sync, reload: %w", err)
	}
	operationsApplied.WithLabelValues(string(op.Kind)).Inc()
	return nil
}
