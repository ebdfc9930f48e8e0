package auth

import "github.com/FrithiofJensen/openproject/internal/model"

// CanView reports whether actor may read activity feeds.
func CanView(actor *Actor) bool {
	return actor.Has(PermViewActivity)
}

// CanCreate reports whether actor may add notes to subjectID.
func CanCreate(actor *Actor, subjectID string) bool {
	return subjectID != "" && actor.Has(PermAddNotes)
}

// MayEdit reports whether actor could edit some entry at all: it must see the
// feed and hold edit_notes or edit_own_notes. Commands check it before looking
// the entry up.
func MayEdit(actor *Actor) bool {
	return CanView(actor) && (actor.Has(PermEditNotes) || actor.Has(PermEditOwnNotes))
}

// CanEdit reports whether actor may edit entry: anyone's with edit_notes,
// their own with edit_own_notes.
func CanEdit(actor *Actor, entry *model.Entry) bool {
	if entry == nil || actor == nil {
		return false
	}
	if actor.Has(PermEditNotes) {
		return true
	}
	return actor.Has(PermEditOwnNotes) && entry.AuthorID == actor.ID
}
