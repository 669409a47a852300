package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, VerifyPassword(hash, "hunter2"))
	assert.ErrorIs(t, VerifyPassword(hash, "hunter3"), ErrWrongPassword)
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("test-secret", time.Hour, 2*time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	access, err := ti.IssueAccess(userID, true)
	require.NoError(t, err)

	claims, err := ti.Verify(access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.True(t, claims.Admin)
	assert.Equal(t, TokenAccess, claims.Type)
}

func TestTokenTypeEnforced(t *testing.T) {
	ti, err := NewTokenIssuer("test-secret", time.Hour, 2*time.Hour)
	require.NoError(t, err)

	refresh, err := ti.IssueRefresh(uuid.New(), false)
	require.NoError(t, err)

	_, err = ti.Verify(refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	claims, err := ti.Verify(refresh, TokenRefresh)
	require.NoError(t, err)
	assert.False(t, claims.Admin)
}

func TestVerifyRejectsTampering(t *testing.T) {
	ti, err := NewTokenIssuer("test-secret", time.Hour, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret", time.Hour, time.Hour)
	require.NoError(t, err)

	token, err := ti.IssueAccess(uuid.New(), false)
	require.NoError(t, err)

	_, err = other.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.Verify(token+"x", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ti, err := NewTokenIssuer("test-secret", time.Nanosecond, time.Hour)
	require.NoError(t, err)

	token, err := ti.IssueAccess(uuid.New(), false)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = ti.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour, time.Hour)
	assert.Error(t, err)
}

func TestRandomTokenUnique(t *testing.T) {
	a, err := RandomToken()
	require.NoError(t, err)
	b, err := RandomToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}
