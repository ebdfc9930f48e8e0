package feed

import (
	"time"

	"github.com/FrithiofJensen/openproject/internal/model"
)

// DiffInput is everything the diff needs; it must be fully materialized.
type DiffInput struct {
	// Entries of the subject, in any order. They are narrowed by
	// Cursor.Filter here. Entries edited out of the filter yield RemoveItem
	// only when they are passed in, so callers should not pre-filter.
	Entries []*model.Entry
	Cursor  Cursor
	// LastVisible optionally supplies the last entry rendered at cursor time
	// when Entries holds only the entries changed since the cursor.
	LastVisible *model.Entry
	// Location is the reference time zone for day keys; nil means UTC.
	Location *time.Location
}

// Diff returns the operations that reconcile a feed rendered at
// in.Cursor.LastUpdate with the current entries.
//
// Entries edited after the cursor come first, in chronological order: a
// RemoveItem when the edit moved the entry out of the filter, a ReplaceItem
// otherwise. Entries created after the cursor follow, oldest first: an entry
// whose day already has a visible group (the day of the last entry visible
// at cursor time, or a day opened earlier in this pass) is inserted into that
// group, any other entry opens a new group. Inserting oldest first at the
// policy's insert position leaves the client in the policy's order.
func Diff(in DiffInput) []Operation {
	all := dedupe(Select(in.Entries, model.FilterAll))
	if len(all) == 0 {
		return nil
	}
	sortChronological(all)

	ts := in.Cursor.LastUpdate
	policy := PolicyFor(in.Cursor.Direction)
	loc := locator{loc: in.Location}

	var (
		ops     []Operation
		created []*model.Entry
	)
	for _, e := range all {
		switch {
		case e.CreatedAt.After(ts):
			if Matches(e, in.Cursor.Filter) {
				created = append(created, e)
			}
		case !e.UpdatedAt.After(ts):
		case Matches(e, in.Cursor.Filter):
			ops = append(ops, replaceItem(e, loc))
		default:
			ops = append(ops, removeItem(e, loc))
		}
	}

	lastVisible := lastVisibleOf(all, in.Cursor.Filter, ts)
	if lv := in.LastVisible; lv != nil && Matches(lv, in.Cursor.Filter) && !lv.CreatedAt.After(ts) {
		if lastVisible == nil || chronological(lastVisible, lv) {
			lastVisible = lv
		}
	}

	visibleDays := make(map[DayKey]struct{}, 1)
	if lastVisible != nil {
		visibleDays[loc.key(lastVisible)] = struct{}{}
	}
	for _, e := range created {
		key := loc.key(e)
		if _, ok := visibleDays[key]; ok {
			ops = append(ops, insertItem(e, policy, loc))
			continue
		}
		ops = append(ops, insertGroup(e, policy, loc))
		visibleDays[key] = struct{}{}
	}
	return ops
}

// lastVisibleOf returns the entry with the greatest creation time at or
// before ts among entries matching f, or nil.
func lastVisibleOf(entries []*model.Entry, f model.Filter, ts time.Time) *model.Entry {
	var last *model.Entry
	for _, e := range entries {
		if e == nil || !Matches(e, f) || e.CreatedAt.After(ts) {
			continue
		}
		if last == nil || chronological(last, e) {
			last = e
		}
	}
	return last
}

// dedupe drops repeated entry ids, keeping the first occurrence.
func dedupe(entries []*model.Entry) []*model.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.EntryID]; ok {
			continue
		}
		seen[e.EntryID] = struct{}{}
		out = append(out, e)
	}
	return out
}
