package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

func TestNewUser(t *testing.T) {
	t.Run("creates active user", func(t *testing.T) {
		user, err := NewUser("  Alice ", "Alice@Example.com", "Password123")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.False(t, user.IsAdmin)
		assert.NotEqual(t, "Password123", user.PasswordHash)
		assert.True(t, user.VerifyPassword("Password123"))
		assert.False(t, user.VerifyPassword("Password124"))
	})

	t.Run("email is optional", func(t *testing.T) {
		user, err := NewUser("bob", "", "Password123")
		require.NoError(t, err)
		assert.Empty(t, user.Email)
	})

	t.Run("fails with short username", func(t *testing.T) {
		_, err := NewUser("ab", "", "Password123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 3 characters")
	})

	t.Run("fails with invalid username characters", func(t *testing.T) {
		_, err := NewUser("bad name", "", "Password123")
		assert.Error(t, err)
	})

	t.Run("fails with weak password", func(t *testing.T) {
		_, err := NewUser("carol", "", "password")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "one letter and one number")
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewUser("dave", "not-an-email", "Password123")
		assert.Error(t, err)
	})
}

func TestUser_LoginTracking(t *testing.T) {
	user, err := NewUser("erin", "", "Password123")
	require.NoError(t, err)

	assert.False(t, user.RecordLoginFailure(3, time.Minute))
	assert.False(t, user.RecordLoginFailure(3, time.Minute))
	assert.True(t, user.RecordLoginFailure(3, time.Minute))
	assert.True(t, user.IsLocked())
	assert.False(t, user.CanLogin())

	user.RecordLoginSuccess("127.0.0.1")
	assert.Zero(t, user.FailedAttempts)
	assert.Nil(t, user.LockedUntil)
	require.NotNil(t, user.LastLoginAt)
	assert.True(t, user.CanLogin())

	user.Deactivate()
	assert.False(t, user.CanLogin())
}

func TestUser_Actor(t *testing.T) {
	user, err := NewUser("frank", "", "Password123")
	require.NoError(t, err)
	user.GrantAdmin()
	require.NoError(t, user.SetFullName("Frank Admin"))

	actor := user.Actor("10.1.1.1", "test-agent")
	assert.Equal(t, user.ID, actor.UserID)
	assert.True(t, actor.IsAdmin)
	assert.Equal(t, "10.1.1.1", actor.IP)
	assert.Equal(t, "Frank Admin", user.DisplayName())
}
