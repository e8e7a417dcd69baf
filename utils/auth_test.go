package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret")

func TestGenerateJWT_RoundTrip(t *testing.T) {
	t.Parallel()

	token, err := GenerateJWT(testSecret, "507f1f77bcf86cd799439011", "admin", 7*24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), time.Unix(claims.ExpiresAt, 0), time.Minute)
}

func TestParseJWT_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := GenerateJWT(testSecret, "507f1f77bcf86cd799439011", "user", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestParseJWT_Expired(t *testing.T) {
	t.Parallel()

	token, err := GenerateJWT(testSecret, "507f1f77bcf86cd799439011", "user", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, token)
	assert.Error(t, err)
}

func TestParseJWT_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ParseJWT(testSecret, "not-a-token")
	assert.Error(t, err)
}
