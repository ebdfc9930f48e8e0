package feed

import (
	"time"

	"github.com/FrithiofJensen/openproject/internal/model"
)

// OpKind tags an Operation. The transport layer maps each kind to a rendering.
type OpKind string

const (
	// OpReplaceItem re-renders an existing entry in Show form.
	OpReplaceItem OpKind = "replace_item"
	// OpRemoveItem drops an entry that an edit moved out of the filter.
	OpRemoveItem OpKind = "remove_item"
	// OpAppendItem and OpPrependItem insert an entry into a visible day group.
	OpAppendItem  OpKind = "append_item"
	OpPrependItem OpKind = "prepend_item"
	// OpAppendGroup and OpPrependGroup materialize a new day group.
	OpAppendGroup  OpKind = "append_group"
	OpPrependGroup OpKind = "prepend_group"
)

// Operation is one incremental instruction for a client feed.
//
// Item operations target GroupKey; group operations carry the new group's key
// and its entry ids. Entry is the canonical Show-mode content of the entry the
// operation is about.
type Operation struct {
	Kind     OpKind      `json:"kind"`
	GroupKey DayKey      `json:"groupKey"`
	EntryID  string      `json:"entryId"`
	EntryIDs []string    `json:"entryIds,omitempty"`
	Entry    model.Entry `json:"entry"`
}

// Replace returns the ReplaceItem operation for an entry whose content changed.
func Replace(e *model.Entry, loc *time.Location) Operation {
	return replaceItem(e, locator{loc: loc})
}

func replaceItem(e *model.Entry, loc locator) Operation {
	return Operation{Kind: OpReplaceItem, GroupKey: loc.key(e), EntryID: e.EntryID, Entry: *e}
}

func removeItem(e *model.Entry, loc locator) Operation {
	return Operation{Kind: OpRemoveItem, GroupKey: loc.key(e), EntryID: e.EntryID, Entry: *e}
}

func insertItem(e *model.Entry, p Policy, loc locator) Operation {
	kind := OpAppendItem
	if p.Insert == Prepend {
		kind = OpPrependItem
	}
	return Operation{Kind: kind, GroupKey: loc.key(e), EntryID: e.EntryID, Entry: *e}
}

func insertGroup(e *model.Entry, p Policy, loc locator) Operation {
	kind := OpAppendGroup
	if p.Insert == Prepend {
		kind = OpPrependGroup
	}
	return Operation{Kind: kind, GroupKey: loc.key(e), EntryID: e.EntryID, EntryIDs: []string{e.EntryID}, Entry: *e}
}
