package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/feed"
	"github.com/FrithiofJensen/openproject/internal/metrics"
	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/notify"
	"github.com/FrithiofJensen/openproject/internal/store"
)

// ActivityService orchestrates the activity feed use cases: full renders,
// incremental syncs, mutations and edit sessions. Each call is an
// independent unit of work over a fresh store snapshot.
type ActivityService struct {
	store    store.Store
	sessions *editstate.Tracker
	notifier notify.Dispatcher
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures an ActivityService.
type Option func(*ActivityService)

// WithLocation sets the reference time zone for day grouping.
func WithLocation(loc *time.Location) Option {
	return func(s *ActivityService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ActivityService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *ActivityService) { s.log = log }
}

// NewActivityService wires a service over st. A nil notifier discards notifications.
func NewActivityService(st store.Store, sessions *editstate.Tracker, notifier notify.Dispatcher, opts ...Option) *ActivityService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &ActivityService{
		store:    st,
		sessions: sessions,
		notifier: notifier,
		loc:      time.UTC,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the reference time zone for day keys.
func (s *ActivityService) Location() *time.Location { return s.loc }

// clock returns the current time at the precision every driver stores.
func (s *ActivityService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CursorParams are the raw cursor values of a request.
type CursorParams struct {
	LastUpdateTimestamp string
	Filter              string
	SortDirection       string
}

// FeedResult is a complete render of a subject's feed.
type FeedResult struct {
	Feed       feed.Feed    `json:"feed"`
	Filter     model.Filter `json:"filter"`
	LastUpdate time.Time    `json:"lastUpdateTimestamp"`
}

// SyncResult is the operation log for one synchronization request.
type SyncResult struct {
	Operations []feed.Operation `json:"operations"`
	LastUpdate time.Time        `json:"lastUpdateTimestamp"`
}

// MutationResult is the outcome of a create or update.
type MutationResult struct {
	Entry      *model.Entry     `json:"entry"`
	Operations []feed.Operation `json:"operations"`
	LastUpdate time.Time        `json:"lastUpdateTimestamp"`
}

// CreateSubject registers a subject that entries can attach to.
func (s *ActivityService) CreateSubject(ctx context.Context, actor *auth.Actor, subject *model.Subject) (*model.Subject, error) {
	if !actor.Has(auth.PermAddNotes) {
		return nil, model.NewUnauthorizedError("create_subject", "add_notes permission required")
	}
	if strings.TrimSpace(subject.Title) == "" {
		return nil, model.NewValidationError("title", "must not be empty")
	}
	out := *subject
	if out.CreationTime.IsZero() {
		out.CreationTime = s.clock()
	}
	return s.store.Subjects().Create(ctx, &out)
}

// GetSubject returns a subject the actor may view.
func (s *ActivityService) GetSubject(ctx context.Context, actor *auth.Actor, subjectID string) (*model.Subject, error) {
	if !auth.CanView(actor) {
		return nil, model.NewUnauthorizedError("view", "view_activity permission required")
	}
	return s.store.Subjects().Get(ctx, subjectID)
}

// Index renders the whole feed of a subject in the actor's preferred order.
func (s *ActivityService) Index(ctx context.Context, actor *auth.Actor, subjectID, rawFilter string) (*FeedResult, error) {
	if !auth.CanView(actor) {
		return nil, model.NewUnauthorizedError("view", "view_activity permission required")
	}
	if _, err := s.store.Subjects().Get(ctx, subjectID); err != nil {
		return nil, err
	}
	filter, ok := model.ParseFilter(strings.TrimSpace(rawFilter))
	if !ok {
		s.log.Debug().Str("subject_id", subjectID).Str("filter", rawFilter).Msg("unknown filter, using all")
	}
	dir, err := s.store.Preferences().GetSortDirection(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	now := s.clock()
	entries, err := s.store.Entries().List(ctx, model.ListEntriesRequest{SubjectID: subjectID, Filter: filter})
	if err != nil {
		return nil, err
	}
	f := feed.Build(entries, filter, feed.PolicyFor(dir), s.loc)
	metrics.DiffDuration.WithLabelValues("index").Observe(time.Since(start).Seconds())

	return &FeedResult{Feed: f, Filter: filter, LastUpdate: now}, nil
}

// Sync computes the operations that bring a client at the given cursor up to
// date. Malformed cursor values fall back to defaults; a missing direction
// uses the actor's stored preference.
func (s *ActivityService) Sync(ctx context.Context, actor *auth.Actor, subjectID string, params CursorParams) (*SyncResult, error) {
	if !auth.CanView(actor) {
		return nil, model.NewUnauthorizedError("view", "view_activity permission required")
	}
	if _, err := s.store.Subjects().Get(ctx, subjectID); err != nil {
		return nil, err
	}
	cursor, err := s.cursor(ctx, actor, subjectID, params)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	ops, err := s.diff(ctx, subjectID, cursor, "sync")
	if err != nil {
		return nil, err
	}
	return &SyncResult{Operations: ops, LastUpdate: now}, nil
}

// CreateEntryRequest carries a new note and the caller's cursor.
type CreateEntryRequest struct {
	SubjectID string
	Body      string
	// Notify defaults to true when nil.
	Notify *bool
	Cursor CursorParams
}

// CreateEntry appends a note and returns the operations for the caller's
// cursor, which include the new entry.
func (s *ActivityService) CreateEntry(ctx context.Context, actor *auth.Actor, req CreateEntryRequest) (*MutationResult, error) {
	if !auth.CanCreate(actor, req.SubjectID) {
		metrics.Mutations.WithLabelValues("create", "unauthorized").Inc()
		return nil, model.NewUnauthorizedError("create", "add_notes permission required")
	}
	if strings.TrimSpace(req.Body) == "" {
		metrics.Mutations.WithLabelValues("create", "invalid").Inc()
		return nil, model.NewValidationError("notes", "must not be empty")
	}
	if _, err := s.store.Subjects().Get(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	now := s.clock()
	e, err := s.store.Entries().Create(ctx, &model.Entry{
		SubjectID: req.SubjectID,
		AuthorID:  actor.ID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		metrics.Mutations.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	metrics.Mutations.WithLabelValues("create", "ok").Inc()
	s.log.Info().Str("subject_id", e.SubjectID).Str("entry_id", e.EntryID).Str("actor_id", actor.ID).Msg("entry created")

	if req.Notify == nil || *req.Notify {
		s.notifier.Dispatch(notify.Notification{
			Kind:      notify.KindEntryCreated,
			SubjectID: e.SubjectID,
			EntryID:   e.EntryID,
			AuthorID:  e.AuthorID,
			CreatedAt: e.CreatedAt,
		})
	}

	// the entry is committed; a failing diff must not turn it into an error
	res := &MutationResult{Entry: e, LastUpdate: now}
	cursor, err := s.cursor(ctx, actor, req.SubjectID, req.Cursor)
	if err != nil {
		s.log.Error().Err(err).Str("entry_id", e.EntryID).Msg("resolve cursor after create")
		return res, nil
	}
	ops, err := s.diff(ctx, req.SubjectID, cursor, "create")
	if err != nil {
		s.log.Error().Err(err).Str("entry_id", e.EntryID).Msg("diff after create")
		return res, nil
	}
	res.Operations = ops
	return res, nil
}

// UpdateEntryRequest replaces the notes of an entry.
type UpdateEntryRequest struct {
	SubjectID string
	EntryID   string
	Body      string
}

// UpdateEntry rewrites an entry's notes, closes the actor's edit session and
// returns the single ReplaceItem for it.
func (s *ActivityService) UpdateEntry(ctx context.Context, actor *auth.Actor, req UpdateEntryRequest) (*MutationResult, error) {
	if !auth.MayEdit(actor) {
		metrics.Mutations.WithLabelValues("update", "unauthorized").Inc()
		return nil, model.NewUnauthorizedError("update", "view_activity and an edit permission required")
	}
	cur, err := s.store.Entries().GetByID(ctx, req.SubjectID, req.EntryID)
	if err != nil {
		return nil, err
	}
	if !auth.CanEdit(actor, cur) {
		metrics.Mutations.WithLabelValues("update", "unauthorized").Inc()
		return nil, model.NewUnauthorizedError("update", "not allowed to edit this entry")
	}
	if strings.TrimSpace(req.Body) == "" {
		metrics.Mutations.WithLabelValues("update", "invalid").Inc()
		return nil, model.NewValidationError("notes", "must not be empty")
	}

	now := s.clock()
	e, err := s.store.Entries().Update(ctx, req.SubjectID, req.EntryID, req.Body, now)
	if err != nil {
		metrics.Mutations.WithLabelValues("update", "error").Inc()
		return nil, err
	}
	metrics.Mutations.WithLabelValues("update", "ok").Inc()
	if _, err := s.sessions.Committed(ctx, actor.ID, e.EntryID); err != nil {
		s.log.Error().Err(err).Str("entry_id", e.EntryID).Str("actor_id", actor.ID).Msg("close edit session")
	}
	s.log.Info().Str("subject_id", e.SubjectID).Str("entry_id", e.EntryID).Str("actor_id", actor.ID).Msg("entry updated")

	ops := []feed.Operation{feed.Replace(e, s.loc)}
	metrics.OperationsEmitted.WithLabelValues(string(feed.OpReplaceItem)).Inc()
	return &MutationResult{Entry: e, Operations: ops, LastUpdate: now}, nil
}

// BeginEdit opens an edit session on an entry for the actor.
func (s *ActivityService) BeginEdit(ctx context.Context, actor *auth.Actor, subjectID, entryID string) (editstate.State, error) {
	if _, err := s.authorizeEdit(ctx, actor, subjectID, entryID, "edit"); err != nil {
		return editstate.State{}, err
	}
	return s.sessions.BeginEdit(ctx, actor.ID, entryID)
}

// CancelEdit closes the actor's edit session without saving.
func (s *ActivityService) CancelEdit(ctx context.Context, actor *auth.Actor, subjectID, entryID string) (editstate.State, error) {
	if _, err := s.authorizeEdit(ctx, actor, subjectID, entryID, "cancel_edit"); err != nil {
		return editstate.State{}, err
	}
	return s.sessions.Cancel(ctx, actor.ID, entryID)
}

// EditState returns the actor's current edit state for an entry.
func (s *ActivityService) EditState(ctx context.Context, actor *auth.Actor, subjectID, entryID string) (editstate.State, error) {
	if !auth.CanView(actor) {
		return editstate.State{}, model.NewUnauthorizedError("view", "view_activity permission required")
	}
	if _, err := s.store.Entries().GetByID(ctx, subjectID, entryID); err != nil {
		return editstate.State{}, err
	}
	return s.sessions.Current(ctx, actor.ID, entryID)
}

func (s *ActivityService) authorizeEdit(ctx context.Context, actor *auth.Actor, subjectID, entryID, action string) (*model.Entry, error) {
	if !auth.MayEdit(actor) {
		metrics.Mutations.WithLabelValues(action, "unauthorized").Inc()
		return nil, model.NewUnauthorizedError(action, "view_activity and an edit permission required")
	}
	e, err := s.store.Entries().GetByID(ctx, subjectID, entryID)
	if err != nil {
		return nil, err
	}
	if !auth.CanEdit(actor, e) {
		metrics.Mutations.WithLabelValues(action, "unauthorized").Inc()
		return nil, model.NewUnauthorizedError(action, "not allowed to edit this entry")
	}
	metrics.Mutations.WithLabelValues(action, "ok").Inc()
	return e, nil
}

// GetSorting returns the actor's sort direction.
func (s *ActivityService) GetSorting(ctx context.Context, actor *auth.Actor) (model.SortDirection, error) {
	if actor == nil {
		return "", model.NewUnauthorizedError("sorting", "actor required")
	}
	return s.store.Preferences().GetSortDirection(ctx, actor.ID)
}

// SetSorting stores the actor's sort direction.
func (s *ActivityService) SetSorting(ctx context.Context, actor *auth.Actor, raw string) (model.SortDirection, error) {
	if actor == nil {
		return "", model.NewUnauthorizedError("sorting", "actor required")
	}
	dir := model.SortDirection(strings.TrimSpace(raw))
	if dir != model.SortAsc && dir != model.SortDesc {
		return "", model.NewValidationError("sorting", "must be asc or desc")
	}
	if err := s.store.Preferences().SetSortDirection(ctx, actor.ID, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// cursor parses params, resolving a missing direction from preferences.
func (s *ActivityService) cursor(ctx context.Context, actor *auth.Actor, subjectID string, params CursorParams) (feed.Cursor, error) {
	var fallback model.SortDirection
	if strings.TrimSpace(params.SortDirection) == "" {
		dir, err := s.store.Preferences().GetSortDirection(ctx, actor.ID)
		if err != nil {
			return feed.Cursor{}, err
		}
		fallback = dir
	}
	c, malformed := feed.ParseCursor(params.LastUpdateTimestamp, params.Filter, params.SortDirection, fallback)
	if len(malformed) > 0 {
		s.log.Debug().
			Str("subject_id", subjectID).
			Strs("fields", malformed).
			Msg("malformed cursor, using defaults")
	}
	return c, nil
}

// diff fetches what changed since the cursor and computes the operations.
func (s *ActivityService) diff(ctx context.Context, subjectID string, c feed.Cursor, source string) ([]feed.Operation, error) {
	start := time.Now()
	// unfiltered, so entries edited out of the filter can be removed
	changed, err := s.store.Entries().ListChangedSince(ctx, model.ListEntriesRequest{SubjectID: subjectID, Filter: model.FilterAll}, c.LastUpdate)
	if err != nil {
		return nil, err
	}
	var lastVisible *model.Entry
	if len(changed) > 0 {
		lastVisible, err = s.store.Entries().LastVisible(ctx, model.ListEntriesRequest{SubjectID: subjectID, Filter: c.Filter}, c.LastUpdate)
		if err != nil {
			return nil, err
		}
	}
	ops := feed.Diff(feed.DiffInput{Entries: changed, Cursor: c, LastVisible: lastVisible, Location: s.loc})
	metrics.DiffDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	for _, op := range ops {
		metrics.OperationsEmitted.WithLabelValues(string(op.Kind)).Inc()
	}
	s.log.Debug().Str("subject_id", subjectID).Int("ops", len(ops)).Str("source", source).Msg("diff computed")
	return ops, nil
}

// Poll is Sync for a long-lived caller that already holds a resolved cursor.
// It returns the operations and the cursor advanced to the read time.
func (s *ActivityService) Poll(ctx context.Context, subjectID string, c feed.Cursor) ([]feed.Operation, feed.Cursor, error) {
	now := s.clock()
	ops, err := s.diff(ctx, subjectID, c, "stream")
	if err != nil {
		return nil, c, err
	}
	return ops, c.Advance(now), nil
}

// ResolveCursor authorizes a stream subscription and parses its cursor.
func (s *ActivityService) ResolveCursor(ctx context.Context, actor *auth.Actor, subjectID string, params CursorParams) (feed.Cursor, error) {
	if !auth.CanView(actor) {
		return feed.Cursor{}, model.NewUnauthorizedError("view", "view_activity permission required")
	}
	if _, err := s.store.Subjects().Get(ctx, subjectID); err != nil {
		return feed.Cursor{}, err
	}
	return s.cursor(ctx, actor, subjectID, params)
}
