package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefant-ai/p2vn/pkg/state"
)

func newTestRedis(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewRedisStorage(mr.Addr(), logger)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStorageRoundTrip(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	ps := state.NewPlayerState()
	ps.AdjustAffinity("riley", 3)
	ps.SetFlag("met_riley", true)
	ps.AddNote("Riley hates coffee.")
	ps.CurrentScene = "scene_1"

	require.NoError(t, s.SavePlayerState(ctx, ps.ID, ps))

	loaded, err := s.LoadPlayerState(ctx, ps.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, ps.ID, loaded.ID)
	assert.Equal(t, 3, loaded.GetAffinity("riley"))
	assert.True(t, loaded.GetFlag("met_riley"))
	assert.Equal(t, []string{"Riley hates coffee."}, loaded.Dossier.Notes)
	assert.Equal(t, "scene_1", loaded.CurrentScene)
	assert.False(t, loaded.UpdatedAt.IsZero(), "save must stamp UpdatedAt")
}

func TestRedisStorageNotFound(t *testing.T) {
	s := newTestRedis(t)

	loaded, err := s.LoadPlayerState(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing state loads as nil, not an error")
}

func TestRedisStorageDelete(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	ps := state.NewPlayerState()
	require.NoError(t, s.SavePlayerState(ctx, ps.ID, ps))
	require.NoError(t, s.DeletePlayerState(ctx, ps.ID))

	loaded, err := s.LoadPlayerState(ctx, ps.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
