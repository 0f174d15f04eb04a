package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key-for-testing-purposes", 15*time.Minute)
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService()

	userID := "user-123"
	email := "test@example.com"
	role := "customer"

	token, expiresAt, err := service.GenerateAccessToken(userID, email, role)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService()

	userID := "user-456"
	email := "test@example.com"
	role := "admin"

	token, _, err := service.GenerateAccessToken(userID, email, role)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, role, claims.Role)
	assert.Equal(t, userID, claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	// Create a service with very short expiry
	service := NewJWTService("test-secret", 1*time.Millisecond)

	token, _, err := service.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	service1 := NewJWTService("secret-key-1", 15*time.Minute)
	service2 := NewJWTService("secret-key-2", 15*time.Minute)

	// Generate token with service1
	token, _, err := service1.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	// Try to validate with service2 (different secret)
	claims, err := service2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_WrongAlgorithm(t *testing.T) {
	service := newTestJWTService()

	// Create a token with a different algorithm (none)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-123",
		Email:  "test@example.com",
		Role:   "customer",
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}
