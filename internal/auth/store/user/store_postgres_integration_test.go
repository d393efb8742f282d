//go:build integration

package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"jwelary/internal/auth/models"
	"jwelary/internal/auth/store/user"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/platform/tx"
	"jwelary/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newUser(email string) *models.User {
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Name:         "Alice",
		Role:         id.RoleUser,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := newUser("alice@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	byEmail, err := s.store.FindByEmail(ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
	s.Equal(id.RoleUser, byEmail.Role)
	s.True(u.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, byID.Email)
}

func (s *PostgresStoreSuite) TestDuplicateEmailIsConflict() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newUser("dup@example.com")))
	s.Require().ErrorIs(s.store.Create(ctx, newUser("dup@example.com")), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNotFoundAndDelete() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, id.NewUserID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	u := newUser("gone@example.com")
	s.Require().NoError(s.store.Create(ctx, u))
	s.Require().NoError(s.store.Delete(ctx, u.ID))
	s.Require().ErrorIs(s.store.Delete(ctx, u.ID), sentinel.ErrNotFound)
	_, err = s.store.FindByEmail(ctx, "gone@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTransactionRollbackDiscardsCreate() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		s.Require().NoError(s.store.Create(ctx, newUser("tx@example.com")))
		_, err := s.store.FindByEmail(ctx, "tx@example.com")
		s.Require().NoError(err)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindByEmail(ctx, "tx@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTransactionCommit() {
	ctx := context.Background()
	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		return s.store.Create(ctx, newUser("committed@example.com"))
	})
	s.Require().NoError(err)

	_, err = s.store.FindByEmail(ctx, "committed@example.com")
	s.NoError(err)
}
