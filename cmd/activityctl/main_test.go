package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/client"
	"github.com/FrithiofJensen/openproject/internal/api"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/notify"
	"github.com/FrithiofJensen/openproject/internal/services"
	"github.com/FrithiofJensen/openproject/internal/store/sqlite"
)

type okHealth struct{}

func (okHealth) IsHealthy() bool             { return true }
func (okHealth) Components() map[string]bool { return map[string]bool{} }

func newServer(t *testing.T) string {
	t.Helper()
	db, err := sqlite.OpenMemory("ctl-" + uuid.New().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))

	svc := services.NewActivityService(sqlite.NewWithDB(db), editstate.NewTracker(editstate.NewMemoryStore(), time.Now), notify.Nop{})
	authn := auth.NewStaticAuthenticator(map[string]auth.Actor{
		"sk_ctl": {ID: "ctl", Permissions: []auth.Permission{auth.PermViewActivity, auth.PermAddNotes, auth.PermEditOwnNotes}},
	})
	srv := httptest.NewServer(api.NewRouter(api.RouterDeps{
		Service:       svc,
		Authenticator: authn,
		Health:        okHealth{},
		Stream:        api.StreamConfig{PollInterval: 20 * time.Millisecond},
		Log:           zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api", url, "--key", "sk_ctl"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_RoundTrip(t *testing.T) {
	url := newServer(t)

	out, err := run(t, url, "subject", "create", "--id", "wp-1", "--title", "First")
	require.NoError(t, err)
	var subj client.Subject
	require.NoError(t, json.Unmarshal([]byte(out), &subj))
	assert.Equal(t, "wp-1", subj.SubjectID)

	out, err = run(t, url, "post", "wp-1", "--notes", "hello", "--no-notify")
	require.NoError(t, err)
	var created client.MutationResponse
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotNil(t, created.Entry)
	entryID := created.Entry.EntryID

	out, err = run(t, url, "edit", "wp-1", entryID)
	require.NoError(t, err)
	assert.Contains(t, out, entryID)

	_, err = run(t, url, "update", "wp-1", entryID, "--notes", "hello again")
	require.NoError(t, err)

	out, err = run(t, url, "index", "wp-1")
	require.NoError(t, err)
	var idx client.FeedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &idx))
	entries := idx.Feed.Flatten()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello again", entries[0].Body)

	out, err = run(t, url, "sync", "wp-1", "--since", "1970-01-01T00:00:00Z")
	require.NoError(t, err)
	var synced client.SyncResponse
	require.NoError(t, json.Unmarshal([]byte(out), &synced))
	require.Len(t, synced.Operations, 1)
	assert.Equal(t, entryID, synced.Operations[0].EntryID)
}

func TestCommands_Sorting(t *testing.T) {
	url := newServer(t)

	_, err := run(t, url, "sort", "set", "asc")
	require.NoError(t, err)

	out, err := run(t, url, "sort", "get")
	require.NoError(t, err)
	assert.Equal(t, "asc\n", out)
}

func TestCommands_Errors(t *testing.T) {
	url := newServer(t)

	_, err := run(t, url, "subject", "get", "missing")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	_, err = run(t, url, "sync", "wp-1", "--since", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since")

	_, err = run(t, url, "post", "wp-1")
	require.Error(t, err)
}
