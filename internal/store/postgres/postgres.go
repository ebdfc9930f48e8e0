package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS subjects (
    subject_id    TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS entries (
    entry_id   TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL REFERENCES subjects(subject_id),
    author_id  TEXT NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CHECK (updated_at >= created_at)
);
CREATE INDEX IF NOT EXISTS entries_subject_created ON entries(subject_id, created_at, entry_id);
CREATE INDEX IF NOT EXISTS entries_subject_updated ON entries(subject_id, updated_at);
CREATE TABLE IF NOT EXISTS sort_preferences (
    actor_id  TEXT PRIMARY KEY,
    direction TEXT NOT NULL CHECK (direction IN ('asc','desc'))
);
`

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Subjects() store.Subjects       { return &subjects{db: s.db} }
func (s *pgStore) Entries() store.Entries         { return &entries{db: s.db} }
func (s *pgStore) Preferences() store.Preferences { return &preferences{db: s.db} }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Subjects ---
type subjects struct{ db *sql.DB }

func (r *subjects) Create(ctx context.Context, m *model.Subject) (*model.Subject, error) {
	out := *m
	if out.SubjectID == "" {
		out.SubjectID = uuid.New().String()
	}
	var created time.Time
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO subjects (subject_id, title, creation_time)
        VALUES ($1,$2,COALESCE($3, now()))
        RETURNING creation_time
    `, out.SubjectID, out.Title, nullTime(out.CreationTime))
	if err := row.Scan(&created); err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	out.CreationTime = created.UTC()
	return &out, nil
}

func (r *subjects) Get(ctx context.Context, subjectID string) (*model.Subject, error) {
	out := model.Subject{SubjectID: subjectID}
	err := r.db.QueryRowContext(ctx, `SELECT title, creation_time FROM subjects WHERE subject_id=$1`, subjectID).
		Scan(&out.Title, &out.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("subjectId", subjectID)
	}
	if err != nil {
		return nil, err
	}
	out.CreationTime = out.CreationTime.UTC()
	return &out, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// --- Entries ---
type entries struct{ db *sql.DB }

const entryColumns = `entry_id, subject_id, author_id, body, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanEntry(row scanner) (*model.Entry, error) {
	var e model.Entry
	if err := row.Scan(&e.EntryID, &e.SubjectID, &e.AuthorID, &e.Body, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
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
	// TIMESTAMPTZ keeps microseconds
	out.CreatedAt = out.CreatedAt.UTC().Truncate(time.Microsecond)
	if out.UpdatedAt.Before(out.CreatedAt) {
		out.UpdatedAt = out.CreatedAt
	}
	out.UpdatedAt = out.UpdatedAt.UTC().Truncate(time.Microsecond)
	if _, err := r.db.ExecContext(ctx, `
        INSERT INTO entries (`+entryColumns+`) VALUES ($1,$2,$3,$4,$5,$6)
    `, out.EntryID, out.SubjectID, out.AuthorID, out.Body, out.CreatedAt, out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &out, nil
}

func (r *entries) GetByID(ctx context.Context, subjectID, entryID string) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries WHERE subject_id=$1 AND entry_id=$2
    `, subjectID, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entryId", entryID)
	}
	return e, err
}

func (r *entries) Update(ctx context.Context, subjectID, entryID, body string, at time.Time) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        UPDATE entries SET body=$1, updated_at=GREATEST(updated_at, $2)
        WHERE subject_id=$3 AND entry_id=$4
        RETURNING `+entryColumns,
		body, at.UTC(), subjectID, entryID))
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
        WHERE subject_id=$1`+store.FilterClause(req.Filter)+`
        ORDER BY created_at ASC, entry_id ASC`, req.SubjectID)
}

func (r *entries) ListChangedSince(ctx context.Context, req model.ListEntriesRequest, since time.Time) ([]*model.Entry, error) {
	return r.query(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE subject_id=$1 AND updated_at > $2`+store.FilterClause(req.Filter)+`
        ORDER BY created_at ASC, entry_id ASC`, req.SubjectID, since.UTC())
}

func (r *entries) LastVisible(ctx context.Context, req model.ListEntriesRequest, at time.Time) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE subject_id=$1 AND created_at <= $2`+store.FilterClause(req.Filter)+`
        ORDER BY created_at DESC, entry_id DESC
        LIMIT 1`, req.SubjectID, at.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// --- Preferences ---
type preferences struct{ db *sql.DB }

func (r *preferences) GetSortDirection(ctx context.Context, actorID string) (model.SortDirection, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT direction FROM sort_preferences WHERE actor_id=$1`, actorID).Scan(&raw)
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
        INSERT INTO sort_preferences (actor_id, direction) VALUES ($1,$2)
        ON CONFLICT (actor_id) DO UPDATE SET direction=EXCLUDED.direction
    `, actorID, string(dir))
	return err
}
