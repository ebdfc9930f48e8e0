package feed

import (
	"sort"

	"github.com/FrithiofJensen/openproject/internal/model"
)

// Position is where new items are inserted relative to their container.
type Position string

const (
	Append  Position = "append"
	Prepend Position = "prepend"
)

// Policy resolves a sort direction into group order, entry order and the
// insert position for new items. Group and entry order always agree.
type Policy struct {
	Direction model.SortDirection
	Insert    Position
}

// PolicyFor returns the policy for d. Unknown directions resolve to the default.
func PolicyFor(d model.SortDirection) Policy {
	if d == model.SortAsc {
		return Policy{Direction: model.SortAsc, Insert: Append}
	}
	return Policy{Direction: model.SortDesc, Insert: Prepend}
}

// Descending reports whether newer days and entries come first.
func (p Policy) Descending() bool { return p.Direction != model.SortAsc }

// groupBefore reports whether a group keyed a is ordered before one keyed b.
func (p Policy) groupBefore(a, b DayKey) bool {
	if p.Descending() {
		return a.Compare(b) > 0
	}
	return a.Compare(b) < 0
}

// entryBefore reports whether a is ordered before b within a group.
func (p Policy) entryBefore(a, b *model.Entry) bool {
	if p.Descending() {
		return chronological(b, a)
	}
	return chronological(a, b)
}

// chronological orders by creation time, breaking ties by id so that every
// ordering in this package is total and deterministic.
func chronological(a, b *model.Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.EntryID < b.EntryID
}

// sortChronological sorts entries oldest first in place.
func sortChronological(entries []*model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return chronological(entries[i], entries[j]) })
}
