package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"jwelary/internal/auth/models"
	"jwelary/internal/auth/password"
	"jwelary/internal/auth/store/user"
	"jwelary/internal/platform/config"
	"jwelary/internal/platform/logger"
	"jwelary/internal/platform/postgres"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/platform/tx"
)

type adminStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
}

func seedAdminCmd() *cobra.Command {
	var email, pass, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the ADMIN account if it does not exist",
		Long: `Create an ADMIN user in the credential store named by DATABASE_URL.
An existing account with the same email is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL must be set: the in-memory store does not outlive this command")
			}
			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				return err
			}

			hasher := password.NewHasher(password.WithCost(cfg.Auth.BcryptCost))
			users := user.NewPostgres(db)
			var created bool
			err = tx.Run(ctx, db, func(ctx context.Context) error {
				var err error
				created, err = seedAdmin(ctx, users, hasher, email, pass, name, time.Now())
				return err
			})
			if err != nil {
				return err
			}
			reportSeed(cmd.OutOrStdout(), email, created)
			logger.New(cfg.Env).Info("seed-admin finished", "email", email, "created", created)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "admin@jwelary.com", "Admin email")
	cmd.Flags().StringVar(&pass, "password", "admin123", "Admin password")
	cmd.Flags().StringVar(&name, "name", "Admin User", "Admin display name")
	return cmd
}

// seedAdmin creates the admin unless the email is taken. It reports whether
// a user was created. Unlike self-registration, the operator's email must be
// well formed.
func seedAdmin(ctx context.Context, users adminStore, hasher passwordHasher, email, pass, name string, now time.Time) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || pass == "" || name == "" {
		return false, errors.New("email, password and name are required")
	}
	if !govalidator.IsEmail(email) {
		return false, fmt.Errorf("%q is not an email address", email)
	}

	if _, err := users.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, fmt.Errorf("look up %s: %w", email, err)
	}

	hash, err := hasher.Hash(pass)
	if err != nil {
		return false, err
	}
	err = users.Create(ctx, &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         id.RoleAdmin,
		CreatedAt:    now,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create %s: %w", email, err)
	}
	return true, nil
}

func reportSeed(w io.Writer, email string, created bool) {
	if created {
		fmt.Fprintf(w, "Admin user created: %s\n", email)
		return
	}
	fmt.Fprintf(w, "Admin user already exists: %s\n", email)
}

func hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash of a password",
		Long:  `Print a bcrypt hash of the argument, or of the first line of stdin when no argument is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := passwordInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if cost == 0 {
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				cost = cfg.Auth.BcryptCost
			}
			hash, err := password.NewHasher(password.WithCost(cost)).Hash(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (default BCRYPT_COST)")
	return cmd
}

func passwordInput(r io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(raw), "\n")
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
