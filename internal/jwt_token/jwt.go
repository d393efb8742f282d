// Package jwttoken issues and verifies the HS256 access and refresh tokens.
//
// Tokens are stateless. Validity is a function of signature, issuer, expiry
// and the token_use claim; revocation is layered on top by the denylist.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
)

const (
	UseAccess  = "access"
	UseRefresh = "refresh"

	DefaultAccessTTL  = 2 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// ExpiringSoonWindow is how close to expiry a token must be before clients
	// refresh it proactively.
	ExpiringSoonWindow = 15 * time.Minute
)

// Claims is the token payload.
type Claims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
	FamilyID string `json:"fam,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the user identity carried by both token kinds.
type Identity struct {
	UserID id.UserID
	Email  string
	Name   string
	Role   id.Role
}

// Identity converts verified claims back to a typed identity.
func (c *Claims) Identity() (Identity, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return Identity{UserID: userID, Email: c.Email, Name: c.Name, Role: id.Role(c.Role)}, nil
}

// RemainingLifetime returns how long the token stays valid after now, never
// negative.
func (c *Claims) RemainingLifetime(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}

// IssuedToken is a signed token plus the facts callers need for cookies and
// the denylist.
type IssuedToken struct {
	Token     string
	JTI       string
	FamilyID  string
	ExpiresAt time.Time
	TTL       time.Duration
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

func WithAccessTTL(d time.Duration) Option  { return func(s *JWTService) { s.accessTTL = d } }
func WithRefreshTTL(d time.Duration) Option { return func(s *JWTService) { s.refreshTTL = d } }

// WithClock sets the clock used to check expiry during validation.
func WithClock(now func() time.Time) Option { return func(s *JWTService) { s.now = now } }

func NewJWTService(signingKey string, issuer string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JWTService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived access token issued at now.
func (s *JWTService) IssueAccessToken(identity Identity, now time.Time) (IssuedToken, error) {
	return s.issue(identity, UseAccess, "", s.accessTTL, now)
}

// IssueRefreshToken signs a refresh token in the given rotation family. An
// empty familyID starts a new family.
func (s *JWTService) IssueRefreshToken(identity Identity, familyID string, now time.Time) (IssuedToken, error) {
	if familyID == "" {
		familyID = uuid.NewString()
	}
	return s.issue(identity, UseRefresh, familyID, s.refreshTTL, now)
}

func (s *JWTService) issue(identity Identity, use, familyID string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   identity.UserID.String(),
		Email:    identity.Email,
		Name:     identity.Name,
		Role:     identity.Role.String(),
		TokenUse: use,
		FamilyID: familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return IssuedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return IssuedToken{Token: signed, JTI: jti, FamilyID: familyID, ExpiresAt: expiresAt, TTL: ttl}, nil
}

// ValidateToken checks signature, algorithm, issuer and expiry. Errors are
// always unauthorized domain errors.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateUse(tokenString, UseAccess)
}

// ValidateRefreshToken is ValidateToken restricted to refresh tokens.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateUse(tokenString, UseRefresh)
}

func (s *JWTService) validateUse(tokenString, use string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != use {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token use")
	}
	return claims, nil
}

// Verify returns the claims of a valid token of any use, or nil. It never
// returns an error.
func (s *JWTService) Verify(tokenString string) *Claims {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil
	}
	return claims
}

// ParseUnverified decodes claims without checking the signature. Only use the
// result for decisions that are safe to get wrong, like logging or scheduling
// a refresh.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IsExpiringSoon reports whether fewer than ExpiringSoonWindow remain before
// the token expires. Undecodable tokens, and tokens without an expiry, count
// as expiring.
func IsExpiringSoon(tokenString string, now time.Time) bool {
	claims, err := ParseUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(now) < ExpiringSoonWindow
}
