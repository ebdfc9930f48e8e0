package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/api"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/notify"
	"github.com/FrithiofJensen/openproject/internal/services"
	"github.com/FrithiofJensen/openproject/internal/store"
	"github.com/FrithiofJensen/openproject/internal/store/sqlite"
)

type okHealth struct{}

func (okHealth) IsHealthy() bool             { return true }
func (okHealth) Components() map[string]bool { return map[string]bool{} }

// newServer runs the real HTTP surface on an in-memory store and returns
// clients for alice, bob and a moderator.
func newServer(t *testing.T) (alice, bob, mod *Client) {
	t.Helper()
	alice, bob, mod, _ = newServerWithStore(t)
	return alice, bob, mod
}

func newServerWithStore(t *testing.T) (alice, bob, mod *Client, st store.Store) {
	t.Helper()
	db, err := sqlite.OpenMemory("client-" + uuid.New().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))

	st = sqlite.NewWithDB(db)
	svc := services.NewActivityService(st, editstate.NewTracker(editstate.NewMemoryStore(), time.Now), notify.Nop{})
	editor := []auth.Permission{auth.PermViewActivity, auth.PermAddNotes, auth.PermEditOwnNotes}
	authn := auth.NewStaticAuthenticator(map[string]auth.Actor{
		"sk_alice": {ID: "alice", Permissions: editor},
		"sk_bob":   {ID: "bob", Permissions: editor},
		"sk_mod":   {ID: "mod", Permissions: []auth.Permission{auth.PermViewActivity, auth.PermEditNotes}},
	})
	srv := httptest.NewServer(api.NewRouter(api.RouterDeps{
		Service:       svc,
		Authenticator: authn,
		Health:        okHealth{},
		Stream:        api.StreamConfig{PollInterval: 20 * time.Millisecond, PingInterval: time.Second},
		Log:           zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)

	mk := func(key string) *Client { return New(srv.URL, key, WithRetry(1, time.Millisecond)) }
	return mk("sk_alice"), mk("sk_bob"), mk("sk_mod"), st
}

func shape(f Feed) [][]string {
	out := make([][]string, 0, len(f.Groups))
	for _, g := range f.Groups {
		row := []string{g.Day.String()}
		for _, e := range g.Entries {
			row = append(row, e.EntryID+":"+e.Body)
		}
		out = append(out, row)
	}
	return out
}

func TestView_ConvergesWithFreshRender(t *testing.T) {
	ctx := context.Background()
	alice, bob, _ := newServer(t)
	subj, err := alice.CreateSubject(ctx, "wp-7", "Work package 7")
	require.NoError(t, err)

	av, err := alice.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	bv, err := bob.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)

	_, err = av.Post(ctx, "one", nil)
	require.NoError(t, err)
	_, err = bv.Post(ctx, "two", nil)
	require.NoError(t, err)
	_, err = av.Post(ctx, "three", nil)
	require.NoError(t, err)

	_, err = av.Refresh(ctx)
	require.NoError(t, err)
	_, err = bv.Refresh(ctx)
	require.NoError(t, err)

	fresh, err := alice.Index(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	assert.Equal(t, shape(fresh.Feed), shape(av.Feed()))
	assert.Equal(t, shape(fresh.Feed), shape(bv.Feed()))

	n, err := bv.Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestView_EditIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	alice, _, mod := newServer(t)
	subj, err := alice.CreateSubject(ctx, "", "Editing")
	require.NoError(t, err)

	av, err := alice.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	e, err := av.Post(ctx, "draft", nil)
	require.NoError(t, err)

	require.NoError(t, av.Edit(ctx, e.EntryID))
	assert.True(t, av.Editing(e.EntryID))

	_, err = mod.UpdateEntry(ctx, subj.SubjectID, e.EntryID, "moderated")
	require.NoError(t, err)

	n, err := av.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "draft", av.Feed().Flatten()[0].Body)

	require.NoError(t, av.Cancel(ctx, e.EntryID))
	assert.False(t, av.Editing(e.EntryID))
	assert.Equal(t, "moderated", av.Feed().Flatten()[0].Body)

	require.NoError(t, av.Edit(ctx, e.EntryID))
	saved, err := av.Save(ctx, e.EntryID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", saved.Body)
	assert.Equal(t, "final", av.Feed().Flatten()[0].Body)

	st, err := alice.EditState(ctx, subj.SubjectID, e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, editstate.Show, st.Mode)
}

// A change record that gains notes enters the comments feed and leaves the
// changes feed. Both views keep syncing and match a fresh render.
func TestView_EditMovesEntryBetweenFilters(t *testing.T) {
	ctx := context.Background()
	alice, bob, mod, st := newServerWithStore(t)
	subj, err := alice.CreateSubject(ctx, "", "Filters")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
	change, err := st.Entries().Create(ctx, &model.Entry{SubjectID: subj.SubjectID, AuthorID: "system", CreatedAt: past, UpdatedAt: past})
	require.NoError(t, err)

	comments, err := alice.OpenView(ctx, subj.SubjectID, FilterOnlyComments)
	require.NoError(t, err)
	changes, err := alice.OpenView(ctx, subj.SubjectID, FilterOnlyChanges)
	require.NoError(t, err)
	require.Empty(t, comments.Feed().Groups)
	require.Len(t, changes.Feed().Flatten(), 1)

	_, err = mod.UpdateEntry(ctx, subj.SubjectID, change.EntryID, "explained")
	require.NoError(t, err)
	_, err = bob.CreateEntry(ctx, subj.SubjectID, "hello", CreateEntryOptions{})
	require.NoError(t, err)

	for _, tc := range []struct {
		view   *View
		filter Filter
	}{{comments, FilterOnlyComments}, {changes, FilterOnlyChanges}} {
		_, err := tc.view.Refresh(ctx)
		require.NoError(t, err, tc.filter)
		fresh, err := alice.Index(ctx, subj.SubjectID, tc.filter)
		require.NoError(t, err)
		assert.Equal(t, shape(fresh.Feed), shape(tc.view.Feed()), tc.filter)

		n, err := tc.view.Refresh(ctx)
		require.NoError(t, err, tc.filter)
		assert.Zero(t, n, tc.filter)
	}
	assert.Len(t, comments.Feed().Flatten(), 2)
	assert.Empty(t, changes.Feed().Groups)
}

func TestView_FailedBatchLeavesViewUntouched(t *testing.T) {
	ctx := context.Background()
	alice, _, _ := newServer(t)
	subj, err := alice.CreateSubject(ctx, "", "Batches")
	require.NoError(t, err)
	av, err := alice.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	first, err := av.Post(ctx, "first", nil)
	require.NoError(t, err)

	before, cursor := shape(av.Feed()), av.Cursor()
	now := time.Now().UTC()
	day := av.Feed().Groups[0].Day
	ok := Operation{Kind: "prepend_item", GroupKey: day, EntryID: "x", Entry: Entry{EntryID: "x", CreatedAt: now, UpdatedAt: now}}
	bad := Operation{Kind: "prepend_item", GroupKey: DayKey{Year: 1999, Month: 1, Day: 1}, EntryID: "y"}

	err = av.apply([]Operation{ok, bad}, now.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, before, shape(av.Feed()))
	assert.Equal(t, cursor, av.Cursor())

	_, err = av.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.EntryID, av.Feed().Flatten()[0].EntryID)
}

func TestView_RepeatedInsertIsSkipped(t *testing.T) {
	ctx := context.Background()
	alice, _, _ := newServer(t)
	subj, err := alice.CreateSubject(ctx, "", "Repeats")
	require.NoError(t, err)
	av, err := alice.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	first, err := av.Post(ctx, "first", nil)
	require.NoError(t, err)

	before := shape(av.Feed())
	repeat := Operation{Kind: "prepend_group", GroupKey: av.Feed().Groups[0].Day, EntryID: first.EntryID, Entry: *first}
	later := first.CreatedAt.Add(time.Minute)
	require.NoError(t, av.apply([]Operation{repeat}, later))
	assert.Equal(t, before, shape(av.Feed()))
	assert.Equal(t, later, av.Cursor().LastUpdate)
}

func TestView_SortingChangeRerenders(t *testing.T) {
	ctx := context.Background()
	alice, _, _ := newServer(t)
	subj, err := alice.CreateSubject(ctx, "wp-s", "Sorting")
	require.NoError(t, err)
	for _, body := range []string{"a", "b"} {
		_, err := alice.CreateEntry(ctx, subj.SubjectID, body, CreateEntryOptions{})
		require.NoError(t, err)
	}

	res, err := alice.SetSorting(ctx, SortAsc, subj.SubjectID, FilterAll)
	require.NoError(t, err)
	require.NotNil(t, res.Index)
	flat := res.Index.Feed.Flatten()
	require.Len(t, flat, 2)
	assert.Equal(t, "a", flat[0].Body)

	dir, err := alice.GetSorting(ctx)
	require.NoError(t, err)
	assert.Equal(t, SortAsc, dir)
}

func TestView_FollowAppliesPushedBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	alice, bob, _ := newServer(t)
	subj, err := alice.CreateSubject(ctx, "wp-live", "Live")
	require.NoError(t, err)

	bv, err := bob.OpenView(ctx, subj.SubjectID, FilterAll)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- bv.Follow(ctx) }()

	e, err := alice.CreateEntry(ctx, subj.SubjectID, "pushed", CreateEntryOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		flat := bv.Feed().Flatten()
		return len(flat) == 1 && flat[0].EntryID == e.Entry.EntryID
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestSubscribe_UnknownSubject(t *testing.T) {
	_, _, mod := newServer(t)

	err := mod.Subscribe(context.Background(), "missing", Cursor{}, func(StreamMessage) error { return nil })
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
