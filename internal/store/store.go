package store

import (
	"context"
	"time"

	"github.com/FrithiofJensen/openproject/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlite, postgres).
type Store interface {
	Subjects() Subjects
	Entries() Entries
	Preferences() Preferences
}

type Subjects interface {
	Create(ctx context.Context, s *model.Subject) (*model.Subject, error)
	Get(ctx context.Context, subjectID string) (*model.Subject, error)
}

// Entries returns entries ordered by createdAt ascending, ties broken by id.
// An Update is a single statement so concurrent readers never observe a
// partial write; concurrent updates resolve last-write-wins.
type Entries interface {
	Create(ctx context.Context, e *model.Entry) (*model.Entry, error)
	GetByID(ctx context.Context, subjectID, entryID string) (*model.Entry, error)
	Update(ctx context.Context, subjectID, entryID, body string, at time.Time) (*model.Entry, error)
	List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error)
	// ListChangedSince returns entries with updatedAt after since. Because
	// updatedAt >= createdAt this covers both modified and newly created rows.
	ListChangedSince(ctx context.Context, req model.ListEntriesRequest, since time.Time) ([]*model.Entry, error)
	// LastVisible returns the newest entry created at or before at, or nil.
	LastVisible(ctx context.Context, req model.ListEntriesRequest, at time.Time) (*model.Entry, error)
}

// Preferences stores per-actor sort direction. A missing row reads as
// model.DefaultSortDirection.
type Preferences interface {
	GetSortDirection(ctx context.Context, actorID string) (model.SortDirection, error)
	SetSortDirection(ctx context.Context, actorID string, dir model.SortDirection) error
}
