package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/store"
)

// Timestamps are stored as unix nanoseconds so ordering and comparison happen
// on integers.

// NewWithDB constructs a SQLite store over an open database with schema applied.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Subjects() store.Subjects       { return &subjects{db: s.db} }
func (s *sqliteStore) Entries() store.Entries         { return &entries{db: s.db} }
func (s *sqliteStore) Preferences() store.Preferences { return &preferences{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// --- Subjects ---
type subjects struct{ db *sql.DB }

func (r *subjects) Create(ctx context.Context, m *model.Subject) (*model.Subject, error) {
	out := *m
	if out.SubjectID == "" {
		out.SubjectID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now()
	}
	out.CreationTime = out.CreationTime.UTC()
	if _, err := r.db.ExecContext(ctx, `
        INSERT INTO subjects (subject_id, title, creation_time) VALUES (?,?,?)
    `, out.SubjectID, out.Title, toNanos(out.CreationTime)); err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return &out, nil
}

func (r *subjects) Get(ctx context.Context, subjectID string) (*model.Subject, error) {
	out := model.Subject{SubjectID: subjectID}
	var created int64
	err := r.db.QueryRowContext(ctx, `SELECT title, creation_time FROM subjects WHERE subject_id=?`, subjectID).
		Scan(&out.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("subjectId", subjectID)
	}
	if err != nil {
		return nil, err
	}
	out.CreationTime = fromNanos(created)
	return &out, nil
}

// --- Entries ---
type entries struct{ db *sql.DB }

const entryColumns = `entry_id, subject_id, author_id, body, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanEntry(row scanner) (*model.Entry, error) {
	var e model.Entry
	var created, updated int64
	if err := row.Scan(&e.EntryID, &e.SubjectID, &e.AuthorID, &e.Body, &created, &updated); err != nil {
		return nil, err
	}
	e.CreatedAt = fromNanos(created)
	e.UpdatedAt = fromNanos(updated)
	return &e, nil
}

func (r *entries) Create(ctx context.Context, m *model.Entry) (*model.Entry, error) {
	out := *m
	if out.EntryID == "" {
		out.EntryID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	out.CreatedAt = out.CreatedAt.UTC()
	if out.UpdatedAt.Before(out.CreatedAt) {
		out.UpdatedAt = out.CreatedAt
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	if _, err := r.db.ExecContext(ctx, `
        INSERT INTO entries (`+entryColumns+`) VALUES (?,?,?,?,?,?)
    `, out.EntryID, out.SubjectID, out.AuthorID, out.Body, toNanos(out.CreatedAt), toNanos(out.UpdatedAt)); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &out, nil
}

func (r *entries) GetByID(ctx context.Context, subjectID, entryID string) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries WHERE subject_id=? AND entry_id=?
    `, subjectID, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entryId", entryID)
	}
	return e, err
}

func (r *entries) Update(ctx context.Context, subjectID, entryID, body string, at time.Time) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        UPDATE entries SET body=?, updated_at=MAX(updated_at, ?)
        WHERE subject_id=? AND entry_id=?
        RETURNING `+entryColumns,
		body, toNanos(at), subjectID, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entryId", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return e, nil
}

func (r *entries) query(ctx context.Context, q string, args ...any) ([]*model.Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	return r.query(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE subject_id=?`+store.FilterClause(req.Filter)+`
        ORDER BY created_at ASC, entry_id ASC`, req.SubjectID)
}

func (r *entries) ListChangedSince(ctx context.Context, req model.ListEntriesRequest, since time.Time) ([]*model.Entry, error) {
	return r.query(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE subject_id=? AND updated_at > ?`+store.FilterClause(req.Filter)+`
        ORDER BY created_at ASC, entry_id ASC`, req.SubjectID, toNanos(since))
}

func (r *entries) LastVisible(ctx context.Context, req model.ListEntriesRequest, at time.Time) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE subject_id=? AND created_at <= ?`+store.FilterClause(req.Filter)+`
        ORDER BY created_at DESC, entry_id DESC
        LIMIT 1`, req.SubjectID, toNanos(at)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// --- Preferences ---
type preferences struct{ db *sql.DB }

func (r *preferences) GetSortDirection(ctx context.Context, actorID string) (model.SortDirection, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT direction FROM sort_preferences WHERE actor_id=?`, actorID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSortDirection, nil
	}
	if err != nil {
		return "", err
	}
	return store.DirectionOrDefault(raw), nil
}

func (r *preferences) SetSortDirection(ctx context.Context, actorID string, dir model.SortDirection) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO sort_preferences (actor_id, direction) VALUES (?,?)
        ON CONFLICT(actor_id) DO UPDATE SET direction=excluded.direction
    `, actorID, string(dir))
	return err
}
