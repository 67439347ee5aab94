package tableid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		require.NoError(t, Validate(id))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate("short"))
	assert.Error(t, Validate("has-invalid-!"))
	assert.Error(t, Validate("UPPERCASE000"))
	assert.NoError(t, Validate("0123456789ab"))
}

func TestInviteCode(t *testing.T) {
	code := NewInviteCode()
	assert.Len(t, code, InviteCodeLength)
	assert.Equal(t, code, NormalizeInviteCode("  "+code+" "))
	assert.Equal(t, "ABC123", NormalizeInviteCode("abc123"))
}
