package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/model"
)

func TestExtractAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer sk_1", want: "sk_1"},
		{name: "missing", header: "", wantErr: true},
		{name: "basic", header: "Basic abc", wantErr: true},
		{name: "empty key", header: "Bearer ", wantErr: true},
		{name: "extra parts", header: "Bearer a b", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := ExtractAPIKey(r)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDevAuthenticator(t *testing.T) {
	a := NewDevAuthenticator("sk_dev")
	actor, err := a.Authenticate(context.Background(), "sk_dev")
	require.NoError(t, err)
	assert.Equal(t, DevActorID, actor.ID)
	assert.True(t, actor.Has(PermEditNotes))

	_, err = a.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = NewDevAuthenticator("").Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestStaticAuthenticator(t *testing.T) {
	a := NewStaticAuthenticator(map[string]Actor{
		"k-viewer": {ID: "v", Permissions: []Permission{PermViewActivity}},
	})
	actor, err := a.Authenticate(context.Background(), "k-viewer")
	require.NoError(t, err)
	assert.Equal(t, "v", actor.ID)

	_, err = a.Authenticate(context.Background(), "k-other")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestPolicy(t *testing.T) {
	viewer := &Actor{ID: "v", Permissions: []Permission{PermViewActivity}}
	author := &Actor{ID: "alice", Permissions: []Permission{PermViewActivity, PermAddNotes, PermEditOwnNotes}}
	moderator := &Actor{ID: "mod", Permissions: []Permission{PermEditNotes}}
	admin := &Actor{ID: "root", Permissions: []Permission{PermAll}}

	own := &model.Entry{EntryID: "e1", AuthorID: "alice"}
	theirs := &model.Entry{EntryID: "e2", AuthorID: "bob"}

	cases := []struct {
		name  string
		got   bool
		allow bool
	}{
		{"viewer views", CanView(viewer), true},
		{"viewer creates", CanCreate(viewer, "wp"), false},
		{"viewer edits", CanEdit(viewer, own), false},
		{"author creates", CanCreate(author, "wp"), true},
		{"author creates without subject", CanCreate(author, ""), false},
		{"author edits own", CanEdit(author, own), true},
		{"author edits others", CanEdit(author, theirs), false},
		{"moderator edits others", CanEdit(moderator, theirs), true},
		{"moderator views", CanView(moderator), false},
		{"admin edits", CanEdit(admin, theirs), true},
		{"viewer may not edit", MayEdit(viewer), false},
		{"author may edit", MayEdit(author), true},
		{"moderator without view may not edit", MayEdit(moderator), false},
		{"admin may edit", MayEdit(admin), true},
		{"nil actor may not edit", MayEdit(nil), false},
		{"nil actor", CanView(nil), false},
		{"nil entry", CanEdit(admin, nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allow, tc.got)
		})
	}
}

func TestActorContext(t *testing.T) {
	assert.Nil(t, ActorFrom(context.Background()))
	a := &Actor{ID: "x"}
	assert.Same(t, a, ActorFrom(WithActor(context.Background(), a)))
}
