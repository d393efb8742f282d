// Package models holds the auth domain types.
package models

import (
	"time"

	id "jwelary/pkg/domain"
)

// User is a credential store record.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	Name         string
	Role         id.Role
	CreatedAt    time.Time
}

// PublicUser is the user record without its password hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      id.Role   `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Credentials are presented at login.
type Credentials struct {
	Email    string
	Password string
}

// Registration is a new-account request.
type Registration struct {
	Email    string
	Password string
	Name     string
}

// IssuedCookie is a token ready to be set as a cookie. MaxAge is the token
// lifetime.
type IssuedCookie struct {
	Value  string
	MaxAge time.Duration
}

// LoginResult carries the user and both tokens.
type LoginResult struct {
	User    PublicUser
	Access  IssuedCookie
	Refresh IssuedCookie
}

// RefreshResult carries a new access token and, when rotation is on, a new
// refresh token. Refresh is nil when the refresh cookie must stay untouched.
type RefreshResult struct {
	User    PublicUser
	Access  IssuedCookie
	Refresh *IssuedCookie
}

// LogoutRequest holds whatever tokens the client presented. Both may be empty.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
}
