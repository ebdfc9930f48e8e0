package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

func subjectPath(subjectID string) string {
	return "/api/subjects/" + url.PathEscape(subjectID)
}

func entryPath(subjectID, entryID string) string {
	return subjectPath(subjectID) + "/activities/" + url.PathEscape(entryID)
}

func formatCursorTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// CreateSubject registers a subject. An empty subjectID lets the server pick one.
func (c *Client) CreateSubject(ctx context.Context, subjectID, title string) (*Subject, error) {
	var out Subject
	err := c.do(ctx, call{
		op: "create_subject", method: http.MethodPost, path: "/api/subjects",
		body: map[string]string{"subjectId": subjectID, "title": title},
		want: http.StatusCreated,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSubject(ctx context.Context, subjectID string) (*Subject, error) {
	var out Subject
	if err := c.do(ctx, call{
		op: "get_subject", method: http.MethodGet, path: subjectPath(subjectID),
		want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Index fetches the complete feed of a subject in the caller's preferred order.
func (c *Client) Index(ctx context.Context, subjectID string, filter Filter) (*FeedResponse, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", string(filter))
	}
	var out FeedResponse
	if err := c.do(ctx, call{
		op: "index", method: http.MethodGet, path: subjectPath(subjectID) + "/activities",
		query: q, want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sync fetches the operations that bring a view rendered at cursor up to date.
func (c *Client) Sync(ctx context.Context, subjectID string, cursor Cursor) (*SyncResponse, error) {
	q := url.Values{}
	if ts := formatCursorTime(cursor.LastUpdate); ts != "" {
		q.Set("lastUpdateTimestamp", ts)
	}
	if cursor.Filter != "" {
		q.Set("filter", string(cursor.Filter))
	}
	if cursor.SortDirection != "" {
		q.Set("sortDirection", string(cursor.SortDirection))
	}
	var out SyncResponse
	if err := c.do(ctx, call{
		op: "sync", method: http.MethodGet, path: subjectPath(subjectID) + "/activities/updates",
		query: q, want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEntryOptions tunes CreateEntry.
type CreateEntryOptions struct {
	// Notify defaults to true when nil.
	Notify *bool
	Cursor Cursor
}

// CreateEntry adds a note. It is never retried: a lost response may still
// have created the entry.
func (c *Client) CreateEntry(ctx context.Context, subjectID, notes string, opts CreateEntryOptions) (*MutationResponse, error) {
	if notes == "" {
		return nil, fmt.Errorf("notes must not be empty")
	}
	body := map[string]any{
		"notes":               notes,
		"lastUpdateTimestamp": formatCursorTime(opts.Cursor.LastUpdate),
		"filter":              string(opts.Cursor.Filter),
		"sortDirection":       string(opts.Cursor.SortDirection),
	}
	if opts.Notify != nil {
		body["notify"] = *opts.Notify
	}
	var out MutationResponse
	if err := c.do(ctx, call{
		op: "create_entry", method: http.MethodPost, path: subjectPath(subjectID) + "/activities",
		body: body, want: http.StatusCreated,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEntry replaces an entry's notes. Writing the same notes twice has
// the same result, so it is retried.
func (c *Client) UpdateEntry(ctx context.Context, subjectID, entryID, notes string) (*MutationResponse, error) {
	var out MutationResponse
	if err := c.do(ctx, call{
		op: "update_entry", method: http.MethodPatch, path: entryPath(subjectID, entryID),
		body: map[string]string{"notes": notes}, want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) editCall(ctx context.Context, op, method, suffix, subjectID, entryID string) (*EditState, error) {
	var out EditState
	if err := c.do(ctx, call{
		op: op, method: method, path: entryPath(subjectID, entryID) + suffix,
		want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginEdit opens an edit session on an entry.
func (c *Client) BeginEdit(ctx context.Context, subjectID, entryID string) (*EditState, error) {
	return c.editCall(ctx, "begin_edit", http.MethodPost, "/edit", subjectID, entryID)
}

// CancelEdit closes an edit session without saving.
func (c *Client) CancelEdit(ctx context.Context, subjectID, entryID string) (*EditState, error) {
	return c.editCall(ctx, "cancel_edit", http.MethodPost, "/cancel_edit", subjectID, entryID)
}

func (c *Client) EditState(ctx context.Context, subjectID, entryID string) (*EditState, error) {
	return c.editCall(ctx, "edit_state", http.MethodGet, "/edit", subjectID, entryID)
}

func (c *Client) GetSorting(ctx context.Context) (SortDirection, error) {
	var out SortingResponse
	if err := c.do(ctx, call{
		op: "get_sorting", method: http.MethodGet, path: "/api/sorting",
		want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return "", err
	}
	return out.Sorting, nil
}

// SetSorting stores the caller's sort direction. With a subjectID the
// response carries that subject's feed re-rendered in the new order.
func (c *Client) SetSorting(ctx context.Context, dir SortDirection, subjectID string, filter Filter) (*SortingResponse, error) {
	var out SortingResponse
	if err := c.do(ctx, call{
		op: "set_sorting", method: http.MethodPut, path: "/api/sorting",
		body: map[string]string{"sorting": string(dir), "subjectId": subjectID, "filter": string(filter)},
		want: http.StatusOK, retryable: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
