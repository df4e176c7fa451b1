package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/invitebatch/internal/model"
)

func setupCache(t *testing.T) (*BatchStatusCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBatchStatusCache(client, time.Minute), mr
}

func TestBatchStatusCache_TerminalOnly(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	running := &model.InviteBatch{ID: "b1", OrgID: "org1", Total: 2, Status: model.BatchRunning}
	require.NoError(t, c.Set(ctx, running))
	_, ok := c.Get(ctx, "b1")
	assert.False(t, ok, "non-terminal batches are not cached")

	done := &model.InviteBatch{ID: "b1", OrgID: "org1", Total: 2, Status: model.BatchDone, Sent: 1, Skipped: 1}
	require.NoError(t, c.Set(ctx, done))
	got, ok := c.Get(ctx, "b1")
	require.True(t, ok)
	assert.Equal(t, model.BatchDone, got.Status)
	assert.Equal(t, 1, got.Sent)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "b1")
	assert.False(t, ok, "entry expires after ttl")
}

func TestBatchStatusCache_NilClient(t *testing.T) {
	c := NewBatchStatusCache(nil, 0)
	ctx := context.Background()
	assert.NoError(t, c.Set(ctx, &model.InviteBatch{ID: "b1", Status: model.BatchDone}))
	_, ok := c.Get(ctx, "b1")
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))

	var nilCache *BatchStatusCache
	_, ok = nilCache.Get(ctx, "b1")
	assert.False(t, ok)
}

func TestBatchStatusCache_RedisDown(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, c.Ping(context.Background()))
	mr.Close()
	_, ok := c.Get(context.Background(), "b1")
	assert.False(t, ok)
}
