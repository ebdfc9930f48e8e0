package client

import (
	"time"

	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/feed"
	"github.com/FrithiofJensen/openproject/internal/model"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Domain entities
	Subject       = model.Subject
	Entry         = model.Entry
	Filter        = model.Filter
	SortDirection = model.SortDirection

	// Feed shapes
	Feed      = feed.Feed
	DayGroup  = feed.DayGroup
	DayKey    = feed.DayKey
	Operation = feed.Operation
	OpKind    = feed.OpKind

	EditState = editstate.State
	EditMode  = editstate.Mode
)

const (
	FilterAll          = model.FilterAll
	FilterOnlyComments = model.FilterOnlyComments
	FilterOnlyChanges  = model.FilterOnlyChanges

	SortAsc  = model.SortAsc
	SortDesc = model.SortDesc
)

// Cursor is the synchronization position a caller carries between requests.
// Empty fields let the server pick defaults.
type Cursor struct {
	LastUpdate    time.Time
	Filter        Filter
	SortDirection SortDirection
}

// Responses

type FeedResponse struct {
	Feed       Feed      `json:"feed"`
	Filter     Filter    `json:"filter"`
	LastUpdate time.Time `json:"lastUpdateTimestamp"`
}

type SyncResponse struct {
	Operations []Operation `json:"operations"`
	LastUpdate time.Time   `json:"lastUpdateTimestamp"`
}

type MutationResponse struct {
	Entry      *Entry      `json:"entry"`
	Operations []Operation `json:"operations"`
	LastUpdate time.Time   `json:"lastUpdateTimestamp"`
}

type SortingResponse struct {
	Sorting SortDirection `json:"sorting"`
	Index   *FeedResponse `json:"index,omitempty"`
}

// StreamMessage is one batch pushed by the stream endpoint.
type StreamMessage struct {
	Operations []Operation `json:"operations"`
	LastUpdate time.Time   `json:"lastUpdateTimestamp"`
	Error      *APIError   `json:"error,omitempty"`
}
