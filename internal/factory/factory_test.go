package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/config"
	"github.com/FrithiofJensen/openproject/internal/editstate"
	"github.com/FrithiofJensen/openproject/internal/model"
)

func TestNewStore_SQLiteMemory(t *testing.T) {
	cfg := config.NewForTesting()
	st, closeFn, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	subj, err := st.Subjects().Create(context.Background(), &model.Subject{SubjectID: "wp-1", Title: "x", CreationTime: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "wp-1", subj.SubjectID)
}

func TestNewStore_SQLiteFile(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "activity.db")
	st, closeFn, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	_, err = st.Subjects().Get(context.Background(), "missing")
	assert.True(t, model.IsNotFoundError(err))
}

func TestNewStore_Errors(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "postgres"
	_, _, err := NewStore(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg.DBDriver = "oracle"
	_, _, err = NewStore(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewEditSessions(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewForTesting()

	mem, err := NewEditSessions(ctx, cfg, time.Now, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, mem.Pinger)
	require.NoError(t, mem.Close())

	mr := miniredis.RunT(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	rs, err := NewEditSessions(ctx, cfg, time.Now, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()
	require.NotNil(t, rs.Pinger)
	require.NoError(t, rs.Pinger.HealthPing(ctx))

	st, err := rs.Tracker.BeginEdit(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.Equal(t, editstate.Edit, st.Mode)
	assert.Len(t, mr.Keys(), 1)

	cfg.RedisURL = "not a url"
	_, err = NewEditSessions(ctx, cfg, time.Now, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.NewForTesting()
	d, w := NewNotifier(cfg, zerolog.Nop())
	require.NotNil(t, d)
	require.NotNil(t, w)

	cfg.WebhookURL = "http://127.0.0.1:1/hook"
	d, w = NewNotifier(cfg, zerolog.Nop())
	require.NotNil(t, d)
	require.NotNil(t, w)
}
