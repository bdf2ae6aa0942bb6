package utils // package utils provides helpers for signing and verifying queue callback tokens

import (
	"errors" // errors defines the sentinel returned for bad tokens
	"time"   // time computes token expiry

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is returned when a callback token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// NewQueueToken signs an HS256 token the transport attaches to inbound
// callbacks. The subject identifies the caller and ttl bounds its lifetime.
func NewQueueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	// Create the token with HS256 and sign it with the shared secret.
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseQueueToken verifies raw against secret and returns its claims. Only
// HMAC signing methods are accepted; expiry is enforced by the library.
func ParseQueueToken(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC so a token cannot pick its own algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
