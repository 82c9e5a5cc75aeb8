package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUtil() *JWTUtil {
	return NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1, Issuer: "sweetshop"})
}

func TestGenerateAndValidate(t *testing.T) {
	util := newTestUtil()
	userID := uuid.New()

	token, issued, err := util.GenerateToken(userID, "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)

	gotID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	util := newTestUtil()
	userID := uuid.New()

	_, first, err := util.GenerateToken(userID, "a@example.com", "user")
	require.NoError(t, err)
	_, second, err := util.GenerateToken(userID, "a@example.com", "user")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestValidateRejectsExpired(t *testing.T) {
	util := newTestUtil()
	util.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := util.GenerateToken(uuid.New(), "a@example.com", "user")
	require.NoError(t, err)

	util.now = time.Now
	_, err = util.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	token, _, err := newTestUtil().GenerateToken(uuid.New(), "a@example.com", "user")
	require.NoError(t, err)

	other := NewJWTUtil(&JWTConfig{SigningKey: "other-key", ExpirationHours: 1, Issuer: "sweetshop"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	claims := &UserClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uuid.NewString(),
			Issuer:    "sweetshop",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestUtil().ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := newTestUtil().ValidateToken("not-a-token")
	assert.Error(t, err)
}
