package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteToken(t *testing.T) {
	raw1, hash1, err := newInviteToken()
	require.NoError(t, err)
	raw2, hash2, err := newInviteToken()
	require.NoError(t, err)

	assert.NotEqual(t, raw1, raw2)
	assert.NotEqual(t, hash1, hash2)
	assert.Len(t, hash1, 64)
	assert.Equal(t, hash1, HashToken(raw1))
	assert.NotContains(t, raw1, "=")
}

func TestNewJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := newJoinCode()
		require.NoError(t, err)
		require.Len(t, code, joinCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(joinCodeAlphabet, c), "unexpected char %q", c)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "ABCD2345", NormalizeJoinCode(" abcd-2345 "))
}
