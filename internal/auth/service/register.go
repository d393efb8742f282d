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

// Register creates a USER account. Emails are stored exactly as given.
func (s *Service) Register(ctx context.Context, req models.Registration) (_ models.PublicUser, err error) {
	ctx, span := s.startSpan(ctx, "register")
	defer func() { endSpan(span, err) }()

	if req.Email == "" || req.Password == "" || req.Name == "" {
		return models.PublicUser{}, dErrors.New(dErrors.CodeBadRequest, "Email, password, and name are required")
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.PublicUser{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if existing != nil {
		return models.PublicUser{}, dErrors.New(dErrors.CodeConflict, "User already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return models.PublicUser{}, err
	}

	user := &models.User{
		ID:           id.NewUserID(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         id.RoleUser,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.PublicUser{}, dErrors.New(dErrors.CodeConflict, "User already exists")
		}
		return models.PublicUser{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncRegistration()
	s.emit(ctx, audit.Event{
		Action:  audit.EventUserRegistered,
		Subject: user.ID.String(),
		Email:   user.Email,
	})
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())

	return user.Public(), nil
}
