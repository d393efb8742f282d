// Package service implements the authentication operations: register, login,
// logout, refresh and the current-user lookup.
//
// Tokens are stateless JWTs. The service layers a denylist over them so that
// logout revokes what the client presented and, with rotation enabled, each
// refresh token is single use within its family.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,RevocationList

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jwelary/internal/auth/models"
	jwttoken "jwelary/internal/jwt_token"
	"jwelary/internal/platform/metrics"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/audit"
)

const tracerName = "jwelary/internal/auth/service"

// familyKeyPrefix namespaces refresh families in the denylist so they never
// collide with token IDs.
const familyKeyPrefix = "fam:"

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationList is the token denylist.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type TokenIssuer interface {
	IssueAccessToken(identity jwttoken.Identity, now time.Time) (jwttoken.IssuedToken, error)
	IssueRefreshToken(identity jwttoken.Identity, familyID string, now time.Time) (jwttoken.IssuedToken, error)
	ValidateAccessToken(token string) (*jwttoken.Claims, error)
	ValidateRefreshToken(token string) (*jwttoken.Claims, error)
	RefreshTTL() time.Duration
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates the credential store, hasher, token issuer and
// denylist.
type Service struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	trl     RevocationList
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer

	// RefreshRotation makes refresh tokens single use. Presenting a consumed
	// token revokes its whole family.
	RefreshRotation bool

	dummyHash string
}

type Option func(*Service)

func WithRefreshRotation(enabled bool) Option {
	return func(s *Service) { s.RefreshRotation = enabled }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, trl RevocationList, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		trl:    trl,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Unknown emails still pay for one hash comparison at the configured cost.
	if hash, err := hasher.Hash("jwelary-timing-equalizer"); err == nil {
		s.dummyHash = hash
	}
	return s
}

// IsTokenRevoked satisfies the access guard's revocation check.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// AdminAccessDenied records an authenticated non-admin reaching an admin route.
func (s *Service) AdminAccessDenied(ctx context.Context, userID id.UserID, path string) {
	s.emit(ctx, audit.Event{
		Action:   audit.EventAdminAccessDenied,
		Severity: audit.SeverityWarning,
		Subject:  userID.String(),
		Reason:   path,
	})
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "auth."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, event)
}

// authFailure logs a rejected credential at Warn and emits a security event.
func (s *Service) authFailure(ctx context.Context, action audit.AuditEvent, severity audit.Severity, subject, email, reason string) {
	s.logger.WarnContext(ctx, "authentication failure",
		"action", action,
		"reason", reason,
		"subject", subject,
	)
	s.emit(ctx, audit.Event{
		Action:   action,
		Severity: severity,
		Subject:  subject,
		Email:    email,
		Reason:   reason,
	})
}

func identityOf(user *models.User) jwttoken.Identity {
	return jwttoken.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}
}

func cookieFor(t jwttoken.IssuedToken) models.IssuedCookie {
	return models.IssuedCookie{Value: t.Token, MaxAge: t.TTL}
}

func familyKey(familyID string) string {
	return familyKeyPrefix + familyID
}
