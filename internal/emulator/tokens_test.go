package emulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer("unit-test-secret", time.Hour)

	token, expiresIn, err := issuer.Issue("test@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3600, expiresIn)

	subject, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", subject)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a", time.Hour).Issue("test@example.com")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("unit-test-secret", -time.Minute)

	token, _, err := issuer.Issue("test@example.com")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("unit-test-secret", time.Hour)

	_, err := issuer.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
