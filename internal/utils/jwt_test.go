package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueTokenRoundTrip(t *testing.T) {
	raw, err := NewQueueToken("s3cret", "queue", time.Minute)
	require.NoError(t, err)

	claims, err := ParseQueueToken("s3cret", raw)
	require.NoError(t, err)
	assert.Equal(t, "queue", claims["sub"])
}

func TestParseQueueTokenRejects(t *testing.T) {
	raw, err := NewQueueToken("s3cret", "queue", time.Minute)
	require.NoError(t, err)
	_, err = ParseQueueToken("other", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewQueueToken("s3cret", "queue", -time.Minute)
	require.NoError(t, err)
	_, err = ParseQueueToken("s3cret", expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseQueueToken("s3cret", none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
