package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killursxlf/livejournal/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(42, "tester", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "tester", claims.Username)
}

func TestExpiredTokenRejected(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(1, "tester", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(1, "tester", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}
