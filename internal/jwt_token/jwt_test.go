package jwttoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
)

var (
	issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice    = Identity{
		UserID: id.NewUserID(),
		Email:  "alice@example.com",
		Name:   "Alice",
		Role:   id.RoleUser,
	}
)

// fixedClock returns a service whose validation clock reads *now.
func fixedClock(now *time.Time) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", WithClock(func() time.Time { return *now }))
}

func Test_IssueAccessToken_RoundTrip(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)

	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)
	assert.Equal(t, 2*time.Hour, issued.TTL)
	assert.Equal(t, issuedAt.Add(2*time.Hour), issued.ExpiresAt)

	claims, err := svc.ValidateAccessToken(issued.Token)
	require.NoError(t, err)
	got, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, alice, got)
	assert.Equal(t, UseAccess, claims.TokenUse)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Empty(t, claims.FamilyID)
}

func Test_IssueRefreshToken(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)

	first, err := svc.IssueRefreshToken(alice, "", issuedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, first.FamilyID)
	assert.Equal(t, 7*24*time.Hour, first.TTL)

	second, err := svc.IssueRefreshToken(alice, first.FamilyID, issuedAt)
	require.NoError(t, err)
	assert.Equal(t, first.FamilyID, second.FamilyID)
	assert.NotEqual(t, first.JTI, second.JTI)

	claims, err := svc.ValidateRefreshToken(second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.FamilyID, claims.FamilyID)
}

func Test_TokenUseIsEnforced(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)

	refresh, err := svc.IssueRefreshToken(alice, "", issuedAt)
	require.NoError(t, err)
	access, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token use"))

	_, err = svc.ValidateRefreshToken(access.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token use"))
}

func Test_ValidateToken_Expired(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)

	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	now = issuedAt.Add(2*time.Hour + time.Second)
	_, err = svc.ValidateAccessToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
	assert.Nil(t, svc.Verify(issued.Token))
}

func Test_ValidateToken_RewrittenExpiryFails(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)

	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	raw["exp"] = issuedAt.Add(-time.Hour).Unix()
	rewritten, err := json.Marshal(raw)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(rewritten)

	_, err = svc.ValidateToken(strings.Join(parts, "."))
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_Rejects(t *testing.T) {
	now := issuedAt
	svc := fixedClock(&now)
	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-token-string")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
	})

	t.Run("other signing key", func(t *testing.T) {
		other := NewJWTService("another-key", "test-issuer", WithClock(func() time.Time { return now }))
		_, err := other.ValidateToken(issued.Token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "someone-else", WithClock(func() time.Time { return now }))
		_, err := other.ValidateToken(issued.Token)
		require.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID:   alice.UserID.String(),
			TokenUse: UseAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			UserID:           alice.UserID.String(),
			TokenUse:         UseAccess,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer"},
		})
		token, err := noExp.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})
}

func Test_IsExpiringSoon(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer")
	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	assert.False(t, IsExpiringSoon(issued.Token, issuedAt))
	assert.False(t, IsExpiringSoon(issued.Token, issued.ExpiresAt.Add(-16*time.Minute)))
	assert.True(t, IsExpiringSoon(issued.Token, issued.ExpiresAt.Add(-14*time.Minute)))
	assert.True(t, IsExpiringSoon(issued.Token, issued.ExpiresAt.Add(time.Minute)))
	assert.True(t, IsExpiringSoon("not-a-token", issuedAt))
}

func Test_RemainingLifetime(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer", WithClock(func() time.Time { return issuedAt }))
	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(issued.Token)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, claims.RemainingLifetime(issuedAt))
	assert.Equal(t, time.Duration(0), claims.RemainingLifetime(issuedAt.Add(3*time.Hour)))
}

func Test_Adapter(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer", WithClock(func() time.Time { return issuedAt }))
	issued, err := svc.IssueAccessToken(alice, issuedAt)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID.String(), claims.UserID)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, issued.JTI, claims.JTI)
}
