package ws

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	auth, err := NewAuthenticator(testSecret)
	require.NoError(t, err)
	return auth
}

func TestValidateAcceptsSignedToken(t *testing.T) {
	auth := newTestAuthenticator(t)
	token := signToken(t, "u1", time.Now().Add(time.Hour))

	assert.NoError(t, auth.Validate(token, "u1"))
	// Second pass hits the cache.
	assert.NoError(t, auth.Validate(token, "u1"))
}

func TestValidateRejectsWrongSubject(t *testing.T) {
	auth := newTestAuthenticator(t)
	token := signToken(t, "u1", time.Now().Add(time.Hour))

	assert.ErrorIs(t, auth.Validate(token, "u2"), ErrTokenMismatch)
	// Cached entry must still enforce the subject.
	require.NoError(t, auth.Validate(token, "u1"))
	assert.ErrorIs(t, auth.Validate(token, "u2"), ErrTokenMismatch)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	auth := newTestAuthenticator(t)
	token := signToken(t, "u1", time.Now().Add(-time.Minute))

	assert.ErrorIs(t, auth.Validate(token, "u1"), ErrTokenInvalid)
}

func TestValidateCacheRespectsExpiry(t *testing.T) {
	auth := newTestAuthenticator(t)
	token := signToken(t, "u1", time.Now().Add(time.Minute))
	require.NoError(t, auth.Validate(token, "u1"))

	// Advance past expiry: the cached entry must not outlive the token.
	auth.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, auth.Validate(token, "u1"), ErrTokenInvalid)
}

func TestValidateRejectsGarbage(t *testing.T) {
	auth := newTestAuthenticator(t)
	assert.ErrorIs(t, auth.Validate("not-a-token", "u1"), ErrTokenInvalid)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	auth := newTestAuthenticator(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	assert.ErrorIs(t, auth.Validate(signed, "u1"), ErrTokenInvalid)
}
