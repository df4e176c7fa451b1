package service

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeInvites(t *testing.T) {
	items := []InviteRequest{
		{Email: "a@x.com", Role: "staff"},
		{Email: " A@X.com ", Role: "Staff"},
		{Email: "a@x.com", Role: "staff", UnitID: "u1"},
		{Email: "b@x.com", RoleID: "r1"},
		{Email: "b@x.com", RoleID: "r1"},
		{Email: "b@x.com", RoleID: "r2"},
	}
	out := DedupeInvites(items)

	assert.Equal(t, []InviteRequest{items[0], items[2], items[3], items[5]}, out)
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "a@x.com|staff|r1|u1", DedupKey(InviteRequest{Email: "A@x.com", Role: "STAFF", RoleID: "r1", UnitID: "u1"}))
	assert.Equal(t, "a@x.com|||", DedupKey(InviteRequest{Email: "a@x.com"}))
}

func TestDedupeInvites_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	emails := []string{"a@x.com", "A@x.com", "b@x.com", "c@x.com"}
	roles := []string{"", "staff", "teacher"}
	units := []string{"", "u1"}

	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		items := make([]InviteRequest, n)
		for i := range items {
			items[i] = InviteRequest{
				Email:  emails[rng.Intn(len(emails))],
				Role:   roles[rng.Intn(len(roles))],
				UnitID: units[rng.Intn(len(units))],
			}
			if rng.Intn(3) == 0 {
				items[i].RoleID = fmt.Sprintf("r%d", rng.Intn(2))
			}
		}
		once := DedupeInvites(items)
		assert.LessOrEqual(t, len(once), len(items))
		assert.Equal(t, once, DedupeInvites(once), "dedupe must be idempotent")

		keys := make(map[string]bool)
		for _, it := range once {
			k := DedupKey(it)
			assert.False(t, keys[k], "duplicate key %s", k)
			keys[k] = true
		}
	}
}

func TestDedupeInvites_KeysOnSubmittedRole(t *testing.T) {
	out := DedupeInvites([]InviteRequest{
		{Email: "a@x.com", RoleID: "r1"},
		{Email: "a@x.com", Role: "staff", RoleID: "r1"},
		{Email: "A@x.com", Role: "STAFF", RoleID: "r1"},
	})
	// roleId 不在去重阶段解析，第二种写法留给落库时的重复检查
	assert.Len(t, out, 2)
	assert.NotEqual(t, DedupKey(out[0]), DedupKey(out[1]))
}
