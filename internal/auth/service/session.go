package service

import (
	"context"
	"errors"

	"jwelary/internal/auth/models"
	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/audit"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/requestcontext"
)

// Me returns the public projection of the authenticated user.
func (s *Service) Me(ctx context.Context, userID id.UserID) (_ models.PublicUser, err error) {
	ctx, span := s.startSpan(ctx, "me")
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return models.PublicUser{}, dErrors.New(dErrors.CodeUnauthorized, "Not authenticated")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.PublicUser{}, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return models.PublicUser{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user.Public(), nil
}

// Logout denylists whatever valid tokens were presented, for the rest of their
// lifetime. The refresh token's whole family goes with it. Logout never fails:
// invalid or missing tokens are ignored and denylist errors are only logged.
func (s *Service) Logout(ctx context.Context, req models.LogoutRequest) {
	ctx, span := s.startSpan(ctx, "logout")
	defer func() { endSpan(span, nil) }()

	now := requestcontext.Now(ctx)
	subject := ""

	if req.AccessToken != "" {
		if claims, err := s.tokens.ValidateAccessToken(req.AccessToken); err == nil {
			subject = claims.UserID
			if ttl := claims.RemainingLifetime(now); ttl > 0 && claims.ID != "" {
				if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
					s.logger.ErrorContext(ctx, "failed to revoke access token", "error", err, "jti", claims.ID)
				}
			}
		}
	}

	if req.RefreshToken != "" {
		if claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken); err == nil {
			subject = claims.UserID
			keys := []string{claims.ID}
			if claims.FamilyID != "" {
				keys = append(keys, familyKey(claims.FamilyID))
			}
			if ttl := claims.RemainingLifetime(now); ttl > 0 {
				if err := s.trl.RevokeTokens(ctx, keys, ttl); err != nil {
					s.logger.ErrorContext(ctx, "failed to revoke refresh token", "error", err, "jti", claims.ID)
				}
			}
		}
	}

	s.metrics.IncLogout()
	if subject != "" {
		s.emit(ctx, audit.Event{Action: audit.EventLoggedOut, Subject: subject})
	}
}
