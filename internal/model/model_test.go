package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseInviteRole(t *testing.T) {
	r, ok := ParseInviteRole(" Staff ")
	assert.True(t, ok)
	assert.Equal(t, RoleStaff, r)

	_, ok = ParseInviteRole("janitor")
	assert.False(t, ok)
}

func TestBatchStatusTransitions(t *testing.T) {
	assert.False(t, BatchQueued.IsTerminal())
	assert.False(t, BatchRunning.IsTerminal())
	assert.True(t, BatchDone.IsTerminal())
	assert.True(t, BatchError.IsTerminal())

	assert.Empty(t, BatchQueued.Predecessors())
	assert.Equal(t, []BatchStatus{BatchQueued}, BatchRunning.Predecessors())
	assert.ElementsMatch(t, []BatchStatus{BatchQueued, BatchRunning}, BatchDone.Predecessors())
}

func TestInviteIsActive(t *testing.T) {
	now := time.Now()
	inv := &Invite{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, inv.IsActive(now))

	assert.False(t, inv.IsActive(now.Add(2*time.Hour)))

	user := "u1"
	inv.AcceptedBy = &user
	assert.False(t, inv.IsActive(now))
}
