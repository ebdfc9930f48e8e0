// Package editstate tracks whether an actor has an entry open for editing.
//
// The machine has two states, Show and Edit, and no terminal state. Feed
// reconciliation never moves an entry out of Edit; only the actor's own cancel
// or a committed update does.
package editstate

import (
	"fmt"
	"time"
)

// Mode is the rendering state of an entry for one actor.
type Mode string

const (
	Show Mode = "show"
	Edit Mode = "edit"
)

// Event drives a transition.
type Event string

const (
	EventEdit   Event = "edit"
	EventCancel Event = "cancel"
	EventCommit Event = "commit"
)

// State is the edit state of one entry for one actor.
type State struct {
	EntryID string    `json:"entryId"`
	ActorID string    `json:"actorId"`
	Mode    Mode      `json:"mode"`
	Since   time.Time `json:"since"`
}

// Initial returns the Show state every entry starts in.
func Initial(actorID, entryID string) State {
	return State{EntryID: entryID, ActorID: actorID, Mode: Show}
}

// Next applies ev to s. Repeating an event is a no-op that keeps Since.
func Next(s State, ev Event, now time.Time) (State, error) {
	var target Mode
	switch ev {
	case EventEdit:
		target = Edit
	case EventCancel, EventCommit:
		target = Show
	default:
		return s, fmt.Errorf("editstate: unknown event %q", ev)
	}
	if s.Mode == "" {
		s.Mode = Show
	}
	if s.Mode == target {
		return s, nil
	}
	s.Mode = target
	s.Since = now.UTC()
	return s, nil
}
