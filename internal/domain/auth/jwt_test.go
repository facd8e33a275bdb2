package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	user := NewUser("counter@example.com", "x")
	user.FirstName = "Pat"
	user.IsAdmin = true
	user.PreferredLocation = "Main Warehouse"
	user.Roles = []Role{{Code: "operator"}}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	uc, err := svc.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, "counter@example.com", uc.Email)
	assert.Equal(t, []string{"operator"}, uc.Roles)
	assert.True(t, uc.IsAdmin)
	assert.Equal(t, "Main Warehouse", uc.Location)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret-a"))
	other := NewJWTService(DefaultJWTConfig("secret-b"))

	user := NewUser("counter@example.com", "x")
	token, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestUser_Lockout(t *testing.T) {
	user := NewUser("counter@example.com", "x")

	for i := 0; i < 4; i++ {
		user.RecordFailedLogin(5, 15*time.Minute)
	}
	assert.False(t, user.IsLocked())
	require.NoError(t, user.CanLogin())

	user.RecordFailedLogin(5, 15*time.Minute)
	assert.True(t, user.IsLocked())
	require.Error(t, user.CanLogin())

	user.RecordSuccessfulLogin()
	assert.False(t, user.IsLocked())
	assert.Zero(t, user.FailedLoginAttempts)
}
