// Package user is the credential store: user records keyed by ID and by
// case-sensitive email.
package user

import (
	"context"
	"sync"

	"jwelary/internal/auth/models"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in maps guarded by a mutex.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create stores user, returning sentinel.ErrConflict if the email is taken.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byID[user.ID]; taken {
		return sentinel.ErrConflict
	}
	stored := *user
	s.byID[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *u
	return &found, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[userID]
	return &found, nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.byID, userID)
	return nil
}
