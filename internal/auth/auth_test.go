package auth

import (
	"testing"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	return New(config.AuthConfig{
		Username:     "operator",
		PasswordHash: hash,
		SecretKey:    "test-secret-key-at-least-32-bytes!",
		TokenTTL:     time.Minute,
	})
}

func TestVerifyAcceptsCorrectCredentials(t *testing.T) {
	a := newTestAuthenticator(t)
	assert.NoError(t, a.Verify("operator", "correct-horse"))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	a := newTestAuthenticator(t)
	assert.ErrorIs(t, a.Verify("operator", "wrong"), ErrInvalidCredentials)
}

func TestVerifyRejectsWrongUsername(t *testing.T) {
	a := newTestAuthenticator(t)
	assert.ErrorIs(t, a.Verify("someone-else", "correct-horse"), ErrInvalidCredentials)
}

func TestIssueAndValidateToken(t *testing.T) {
	a := newTestAuthenticator(t)
	token, expiresAt, err := a.IssueToken()
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	a := newTestAuthenticator(t)
	_, err := a.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.IssueToken()
	require.NoError(t, err)

	other := New(config.AuthConfig{
		Username:     "operator",
		PasswordHash: a.passwordHash,
		SecretKey:    "a-completely-different-secret-key!!",
		TokenTTL:     time.Minute,
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
