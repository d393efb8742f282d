package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"jwelary/internal/auth/models"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists users in the users table. Calls join a transaction
// carried on the context by tx.Run.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(user.ID), user.Email, user.PasswordHash, user.Name, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT id, email, password_hash, name, role, created_at FROM users WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u    models.User
		raw  uuid.UUID
		role string
	)
	err := s.exec(ctx).QueryRowContext(ctx, query, arg).Scan(&raw, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(raw)
	u.Role = id.Role(role)
	return &u, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context) tx.DBTX {
	return tx.Executor(ctx, s.db)
}
