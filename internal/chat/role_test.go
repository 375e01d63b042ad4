package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Run("user", func(t *testing.T) {
		role, err := ParseRole("user")
		require.NoError(t, err)
		assert.Equal(t, RoleUser, role)
		assert.Equal(t, "user", role.String())
	})

	t.Run("assistant", func(t *testing.T) {
		role, err := ParseRole("assistant")
		require.NoError(t, err)
		assert.Equal(t, RoleAssistant, role)
		assert.Equal(t, "assistant", role.String())
	})

	t.Run("rejects any third value", func(t *testing.T) {
		for _, bad := range []string{"system", "User", "ASSISTANT", "", "tool"} {
			_, err := ParseRole(bad)
			assert.Error(t, err, "expected %q to be rejected", bad)
		}
	})

	t.Run("round trip is idempotent", func(t *testing.T) {
		for _, r := range []Role{RoleUser, RoleAssistant} {
			parsed, err := ParseRole(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, parsed)
			assert.True(t, parsed.Valid())
		}
	})
}
