package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	ids := func(es []*model.Entry) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e.EntryID
		}
		return out
	}

	// Subjects
	subj, err := s.Subjects().Create(ctx, &model.Subject{SubjectID: "wp-" + uuid.New().String(), Title: "Work package"})
	require.NoError(t, err, "CreateSubject")
	got, err := s.Subjects().Get(ctx, subj.SubjectID)
	require.NoError(t, err, "GetSubject")
	assert.Equal(t, "Work package", got.Title)
	assert.False(t, got.CreationTime.IsZero())

	_, err = s.Subjects().Get(ctx, "missing-"+uuid.New().String())
	assert.True(t, model.IsNotFoundError(err), "GetSubject missing: %v", err)

	// Entries, inserted out of order
	mk := func(body string, created time.Time) *model.Entry {
		e, err := s.Entries().Create(ctx, &model.Entry{SubjectID: subj.SubjectID, AuthorID: "alice", Body: body, CreatedAt: created, UpdatedAt: created})
		require.NoError(t, err, "CreateEntry")
		require.NotEmpty(t, e.EntryID)
		return e
	}
	c2 := mk("second", at(12, 0))
	c1 := mk("first", at(10, 0))
	ch := mk("", at(11, 0))

	all, err := s.Entries().List(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterAll})
	require.NoError(t, err)
	assert.Equal(t, []string{c1.EntryID, ch.EntryID, c2.EntryID}, ids(all), "List orders by createdAt")

	comments, err := s.Entries().List(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterOnlyComments})
	require.NoError(t, err)
	assert.Equal(t, []string{c1.EntryID, c2.EntryID}, ids(comments))

	changes, err := s.Entries().List(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterOnlyChanges})
	require.NoError(t, err)
	assert.Equal(t, []string{ch.EntryID}, ids(changes))

	e, err := s.Entries().GetByID(ctx, subj.SubjectID, c1.EntryID)
	require.NoError(t, err, "GetByID")
	assert.Equal(t, "first", e.Body)
	assert.True(t, at(10, 0).Equal(e.CreatedAt))

	_, err = s.Entries().GetByID(ctx, subj.SubjectID, "missing")
	assert.True(t, model.IsNotFoundError(err), "GetByID missing: %v", err)
	_, err = s.Entries().GetByID(ctx, "other-subject", c1.EntryID)
	assert.True(t, model.IsNotFoundError(err), "GetByID wrong subject: %v", err)

	// Update
	up, err := s.Entries().Update(ctx, subj.SubjectID, c1.EntryID, "first, edited", at(13, 0))
	require.NoError(t, err, "Update")
	assert.Equal(t, "first, edited", up.Body)
	assert.True(t, at(13, 0).Equal(up.UpdatedAt))
	assert.True(t, at(10, 0).Equal(up.CreatedAt))

	up, err = s.Entries().Update(ctx, subj.SubjectID, c1.EntryID, "late writer", at(12, 30))
	require.NoError(t, err)
	assert.Equal(t, "late writer", up.Body, "last write wins on body")
	assert.True(t, at(13, 0).Equal(up.UpdatedAt), "updatedAt never moves backwards")

	_, err = s.Entries().Update(ctx, subj.SubjectID, "missing", "x", at(13, 0))
	assert.True(t, model.IsNotFoundError(err), "Update missing: %v", err)

	// Changed since
	changed, err := s.Entries().ListChangedSince(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterAll}, at(11, 30))
	require.NoError(t, err)
	assert.Equal(t, []string{c1.EntryID, c2.EntryID}, ids(changed))

	changed, err = s.Entries().ListChangedSince(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterOnlyChanges}, at(11, 30))
	require.NoError(t, err)
	assert.Empty(t, changed)

	// Last visible
	lv, err := s.Entries().LastVisible(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterAll}, at(11, 30))
	require.NoError(t, err)
	require.NotNil(t, lv)
	assert.Equal(t, ch.EntryID, lv.EntryID)

	lv, err = s.Entries().LastVisible(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterOnlyComments}, at(11, 30))
	require.NoError(t, err)
	require.NotNil(t, lv)
	assert.Equal(t, c1.EntryID, lv.EntryID)

	lv, err = s.Entries().LastVisible(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterAll}, at(11, 0))
	require.NoError(t, err)
	require.NotNil(t, lv)
	assert.Equal(t, ch.EntryID, lv.EntryID, "created exactly at the cursor is visible")

	lv, err = s.Entries().LastVisible(ctx, model.ListEntriesRequest{SubjectID: subj.SubjectID, Filter: model.FilterAll}, at(9, 0))
	require.NoError(t, err)
	assert.Nil(t, lv)

	// Preferences
	actor := "actor-" + uuid.New().String()
	dir, err := s.Preferences().GetSortDirection(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, model.SortDesc, dir, "default direction")

	require.NoError(t, s.Preferences().SetSortDirection(ctx, actor, model.SortAsc))
	dir, err = s.Preferences().GetSortDirection(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, model.SortAsc, dir)

	require.NoError(t, s.Preferences().SetSortDirection(ctx, actor, model.SortDesc))
	dir, err = s.Preferences().GetSortDirection(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, model.SortDesc, dir)
}
