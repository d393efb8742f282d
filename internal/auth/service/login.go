package service

import (
	"context"
	"errors"

	"jwelary/internal/auth/device"
	"jwelary/internal/auth/models"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/audit"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/requestcontext"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultReuse   = "reuse"
)

// Login verifies credentials and issues an access token and a refresh token
// in a new family. Unknown email and wrong password are indistinguishable to
// the caller.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (_ *models.LoginResult, err error) {
	ctx, span := s.startSpan(ctx, "login")
	defer func() { endSpan(span, err) }()

	if creds.Email == "" || creds.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
		if s.dummyHash != "" {
			s.hasher.Verify(creds.Password, s.dummyHash)
		}
		s.metrics.IncLogin(resultFailure)
		s.authFailure(ctx, audit.EventLoginFailed, audit.SeverityWarning, "", creds.Email, "unknown_email")
		return nil, invalidCredentials()
	}
	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		s.metrics.IncLogin(resultFailure)
		s.authFailure(ctx, audit.EventLoginFailed, audit.SeverityWarning, user.ID.String(), creds.Email, "password_mismatch")
		return nil, invalidCredentials()
	}

	now := requestcontext.Now(ctx)
	identity := identityOf(user)
	access, err := s.tokens.IssueAccessToken(identity, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.tokens.IssueRefreshToken(identity, "", now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}

	s.metrics.IncLogin(resultSuccess)
	s.emit(ctx, audit.Event{
		Action:  audit.EventLoginSucceeded,
		Subject: user.ID.String(),
		Email:   user.Email,
		Device:  device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	})

	return &models.LoginResult{
		User:    user.Public(),
		Access:  cookieFor(access),
		Refresh: cookieFor(refresh),
	}, nil
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
}
