package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/FrithiofJensen/openproject/internal/model"
)

type locator struct{ loc *time.Location }

func (l locator) key(e *model.Entry) DayKey { return DayKeyOf(e.CreatedAt, l.loc) }

// DayGroup is a non-empty run of entries created on the same day.
type DayGroup struct {
	Day     DayKey         `json:"day"`
	Entries []*model.Entry `json:"entries"`
}

// Feed is an ordered sequence of day groups, at most one per day.
type Feed struct {
	Direction model.SortDirection `json:"sortDirection"`
	Groups    []DayGroup          `json:"groups"`
}

// Flatten returns every entry of the feed in feed order.
func (f Feed) Flatten() []*model.Entry {
	var out []*model.Entry
	for _, g := range f.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Build groups the entries matching filter by day and orders groups and
// entries by policy.
func Build(entries []*model.Entry, filter model.Filter, policy Policy, loc *time.Location) Feed {
	idx := NewIndex(policy, loc)
	for _, e := range Select(entries, filter) {
		idx.Add(e)
	}
	return idx.Feed()
}

// Index maintains a feed incrementally. It is not safe for concurrent use.
//
// Add places an entry at its ordered position; Apply replays an Operation the
// way a client does, at the container edge the operation names.
type Index struct {
	policy Policy
	loc    locator
	groups []*DayGroup
	byDay  map[DayKey]*DayGroup
	byID   map[string]DayKey
}

// NewIndex returns an empty index.
func NewIndex(policy Policy, loc *time.Location) *Index {
	return &Index{
		policy: policy,
		loc:    locator{loc: loc},
		byDay:  make(map[DayKey]*DayGroup),
		byID:   make(map[string]DayKey),
	}
}

// Restore returns an index holding f exactly as rendered, keeping its day
// keys. Clients use it to replay operations onto a feed they received.
func Restore(f Feed) *Index {
	x := NewIndex(PolicyFor(f.Direction), nil)
	for _, g := range f.Groups {
		cp := &DayGroup{Day: g.Day, Entries: append([]*model.Entry(nil), g.Entries...)}
		x.groups = append(x.groups, cp)
		x.byDay[g.Day] = cp
		for _, e := range g.Entries {
			x.byID[e.EntryID] = g.Day
		}
	}
	return x
}

// Clone returns an independent copy sharing only the immutable entries.
func (x *Index) Clone() *Index {
	cp := &Index{
		policy: x.policy,
		loc:    x.loc,
		groups: make([]*DayGroup, 0, len(x.groups)),
		byDay:  make(map[DayKey]*DayGroup, len(x.byDay)),
		byID:   make(map[string]DayKey, len(x.byID)),
	}
	for _, g := range x.groups {
		ng := &DayGroup{Day: g.Day, Entries: append([]*model.Entry(nil), g.Entries...)}
		cp.groups = append(cp.groups, ng)
		cp.byDay[g.Day] = ng
	}
	for id, key := range x.byID {
		cp.byID[id] = key
	}
	return cp
}

// Contains reports whether the entry is rendered.
func (x *Index) Contains(id string) bool {
	_, ok := x.byID[id]
	return ok
}

func (x *Index) size() int { return len(x.byID) }

// Add inserts e in order, replacing any entry with the same id.
func (x *Index) Add(e *model.Entry) {
	x.addAt(e, x.loc.key(e))
}

// addAt inserts e in order under key, replacing any entry with the same id.
func (x *Index) addAt(e *model.Entry, key DayKey) {
	if x.Contains(e.EntryID) {
		x.remove(e.EntryID)
	}
	g, ok := x.byDay[key]
	if !ok {
		g = &DayGroup{Day: key}
		i := sort.Search(len(x.groups), func(i int) bool { return x.policy.groupBefore(key, x.groups[i].Day) })
		x.groups = append(x.groups, nil)
		copy(x.groups[i+1:], x.groups[i:])
		x.groups[i] = g
		x.byDay[key] = g
	}
	i := sort.Search(len(g.Entries), func(i int) bool { return x.policy.entryBefore(e, g.Entries[i]) })
	g.Entries = append(g.Entries, nil)
	copy(g.Entries[i+1:], g.Entries[i:])
	g.Entries[i] = e
	x.byID[e.EntryID] = key
}

func (x *Index) remove(id string) {
	key := x.byID[id]
	g := x.byDay[key]
	delete(x.byID, id)
	for i, e := range g.Entries {
		if e.EntryID == id {
			g.Entries = append(g.Entries[:i], g.Entries[i+1:]...)
			break
		}
	}
	if len(g.Entries) > 0 {
		return
	}
	delete(x.byDay, key)
	for i, cur := range x.groups {
		if cur == g {
			x.groups = append(x.groups[:i], x.groups[i+1:]...)
			break
		}
	}
}

// Apply replays op against the index. It fails when the operation does not
// fit the current state: inserting into a missing group, opening a group that
// already exists or inserting a duplicate id.
//
// ReplaceItem for an entry that is not held inserts it in order under the
// operation's group key: an edit can make an entry match the filter. RemoveItem
// for an entry that is not held does nothing.
func (x *Index) Apply(op Operation) error {
	e := op.Entry
	switch op.Kind {
	case OpReplaceItem:
		key, ok := x.byID[op.EntryID]
		if !ok {
			x.addAt(&e, op.GroupKey)
			return nil
		}
		for i, cur := range x.byDay[key].Entries {
			if cur.EntryID == op.EntryID {
				x.byDay[key].Entries[i] = &e
			}
		}
		return nil
	case OpRemoveItem:
		if x.Contains(op.EntryID) {
			x.remove(op.EntryID)
		}
		return nil
	case OpAppendItem, OpPrependItem:
		if x.Contains(op.EntryID) {
			return fmt.Errorf("%s %s: entry already rendered", op.Kind, op.EntryID)
		}
		g, ok := x.byDay[op.GroupKey]
		if !ok {
			return fmt.Errorf("%s %s: no group for %s", op.Kind, op.EntryID, op.GroupKey)
		}
		if op.Kind == OpAppendItem {
			g.Entries = append(g.Entries, &e)
		} else {
			g.Entries = append([]*model.Entry{&e}, g.Entries...)
		}
		x.byID[op.EntryID] = op.GroupKey
		return nil
	case OpAppendGroup, OpPrependGroup:
		if _, ok := x.byDay[op.GroupKey]; ok {
			return fmt.Errorf("%s %s: group already rendered", op.Kind, op.GroupKey)
		}
		if x.Contains(op.EntryID) {
			return fmt.Errorf("%s %s: entry already rendered", op.Kind, op.EntryID)
		}
		g := &DayGroup{Day: op.GroupKey, Entries: []*model.Entry{&e}}
		if op.Kind == OpAppendGroup {
			x.groups = append(x.groups, g)
		} else {
			x.groups = append([]*DayGroup{g}, x.groups...)
		}
		x.byDay[op.GroupKey] = g
		x.byID[op.EntryID] = op.GroupKey
		return nil
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// Feed returns a snapshot of the index.
func (x *Index) Feed() Feed {
	out := Feed{Direction: x.policy.Direction, Groups: make([]DayGroup, 0, len(x.groups))}
	for _, g := range x.groups {
		out.Groups = append(out.Groups, DayGroup{Day: g.Day, Entries: append([]*model.Entry(nil), g.Entries...)})
	}
	return out
}
