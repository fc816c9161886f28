package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "thoth")

	token, err := m.GenerateToken("user-1", "a@b.c", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("secret", "thoth")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTRejectsOtherIssuerAndSecret(t *testing.T) {
	token, err := NewJWTManager("secret", "other").GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", "thoth").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTManager("другой", "other").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
