package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/invitebatch/internal/model"
)

func newBatch(status model.BatchStatus) *model.InviteBatch {
	return &model.InviteBatch{ID: uuid.New().String(), OrgID: "org1", Total: 3, Status: status, Skipped: 1, SendEmail: true}
}

func TestBatchRepository_CreateAndGet(t *testing.T) {
	repo := NewBatchRepository(setupTestDB(t))
	ctx := context.Background()

	b := newBatch(model.BatchQueued)
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchQueued, got.Status)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Skipped)
	assert.True(t, got.SendEmail)
}

func TestBatchRepository_GetNotFound(t *testing.T) {
	repo := NewBatchRepository(setupTestDB(t))
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestBatchRepository_StatusOnlyMovesForward(t *testing.T) {
	repo := NewBatchRepository(setupTestDB(t))
	ctx := context.Background()
	b := newBatch(model.BatchQueued)
	require.NoError(t, repo.Create(ctx, b))

	running := model.BatchRunning
	require.NoError(t, repo.Update(ctx, b.ID, BatchUpdate{Status: &running}))

	// running -> running 不允许
	assert.ErrorIs(t, repo.Update(ctx, b.ID, BatchUpdate{Status: &running}), ErrInvalidTransition)

	done := model.BatchDone
	sent, failed := 1, 1
	require.NoError(t, repo.Update(ctx, b.ID, BatchUpdate{Status: &done, Sent: &sent, Failed: &failed}))

	queued := model.BatchQueued
	assert.ErrorIs(t, repo.Update(ctx, b.ID, BatchUpdate{Status: &queued}), ErrInvalidTransition)
	assert.ErrorIs(t, repo.Update(ctx, b.ID, BatchUpdate{Status: &running}), ErrInvalidTransition)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchDone, got.Status)
	assert.Equal(t, 1, got.Sent)
	assert.Equal(t, 1, got.Failed)
}

func TestBatchRepository_UpdateWithoutStatus(t *testing.T) {
	repo := NewBatchRepository(setupTestDB(t))
	ctx := context.Background()
	b := newBatch(model.BatchDone)
	require.NoError(t, repo.Create(ctx, b))

	msg := "note"
	require.NoError(t, repo.Update(ctx, b.ID, BatchUpdate{Message: &msg}))
	require.NoError(t, repo.Update(ctx, b.ID, BatchUpdate{}))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "note", got.Message)
}

func TestBatchRepository_UpdateUnknown(t *testing.T) {
	repo := NewBatchRepository(setupTestDB(t))
	done := model.BatchDone
	assert.ErrorIs(t, repo.Update(context.Background(), "missing", BatchUpdate{Status: &done}), ErrBatchNotFound)
}
