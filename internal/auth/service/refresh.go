package service

import (
	"context"
	"errors"

	"jwelary/internal/auth/models"
	jwttoken "jwelary/internal/jwt_token"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/audit"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/requestcontext"
)

// Refresh exchanges a valid refresh token for a new access token. With
// rotation enabled the presented token is consumed and a successor in the
// same family is returned; presenting a consumed token again revokes the
// family.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *models.RefreshResult, err error) {
	ctx, span := s.startSpan(ctx, "refresh")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		s.metrics.IncRefresh(resultFailure)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Refresh token not found")
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.metrics.IncRefresh(resultFailure)
		return nil, invalidRefreshToken()
	}
	identity, err := claims.Identity()
	if err != nil {
		s.metrics.IncRefresh(resultFailure)
		return nil, invalidRefreshToken()
	}

	revoked, err := s.refreshRevoked(ctx, claims)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		s.metrics.IncRefresh(resultFailure)
		s.logger.WarnContext(ctx, "revoked refresh token presented", "user_id", claims.UserID)
		return nil, invalidRefreshToken()
	}

	now := requestcontext.Now(ctx)
	if s.RefreshRotation {
		if err := s.consumeRefresh(ctx, claims); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncRefresh(resultFailure)
			return nil, dErrors.New(dErrors.CodeUnauthorized, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	access, err := s.tokens.IssueAccessToken(identityOf(user), now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	result := &models.RefreshResult{
		User:   user.Public(),
		Access: cookieFor(access),
	}
	if s.RefreshRotation {
		next, err := s.tokens.IssueRefreshToken(identityOf(user), claims.FamilyID, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
		}
		cookie := cookieFor(next)
		result.Refresh = &cookie
	}

	s.metrics.IncRefresh(resultSuccess)
	s.emit(ctx, audit.Event{
		Action:  audit.EventTokenRefreshed,
		Subject: user.ID.String(),
	})
	return result, nil
}

func (s *Service) refreshRevoked(ctx context.Context, claims *jwttoken.Claims) (bool, error) {
	revoked, err := s.trl.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return revoked, err
	}
	if claims.FamilyID == "" {
		return false, nil
	}
	return s.trl.IsRevoked(ctx, familyKey(claims.FamilyID))
}

// consumeRefresh marks the token used. A second presentation is treated as
// theft: the family is revoked for the full refresh lifetime.
func (s *Service) consumeRefresh(ctx context.Context, claims *jwttoken.Claims) error {
	ttl := claims.RemainingLifetime(requestcontext.Now(ctx))
	if ttl <= 0 {
		s.metrics.IncRefresh(resultFailure)
		return invalidRefreshToken()
	}
	first, err := s.trl.ConsumeOnce(ctx, claims.ID, ttl)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume refresh token")
	}
	if first {
		return nil
	}

	if claims.FamilyID != "" {
		if err := s.trl.RevokeToken(ctx, familyKey(claims.FamilyID), s.tokens.RefreshTTL()); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke refresh family", "error", err, "family_id", claims.FamilyID)
		}
	}
	s.metrics.IncRefreshReuse()
	s.metrics.IncRefresh(resultReuse)
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		"user_id", claims.UserID,
		"family_id", claims.FamilyID,
	)
	s.emit(ctx, audit.Event{
		Action:   audit.EventRefreshReuseDetected,
		Severity: audit.SeverityCritical,
		Subject:  claims.UserID,
		Email:    claims.Email,
		Reason:   claims.FamilyID,
	})
	return invalidRefreshToken()
}

func invalidRefreshToken() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Invalid refresh token")
}
