package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseUserID(t *testing.T) {
	userID := uuid.New()

	t.Run("reads user_id claim", func(t *testing.T) {
		token := signToken(t, &Claims{
			UserID: userID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		got, err := ParseUserID(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("falls back to subject", func(t *testing.T) {
		token := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		got, err := ParseUserID(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		token := signToken(t, &Claims{UserID: userID.String()}, "other-secret")
		_, err := ParseUserID(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := signToken(t, &Claims{
			UserID: userID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, testSecret)
		_, err := ParseUserID(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("rejects a token without an identity", func(t *testing.T) {
		token := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)
		_, err := ParseUserID(token, testSecret)
		assert.Error(t, err)
	})
}
