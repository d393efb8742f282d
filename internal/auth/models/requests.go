package models

import dErrors "jwelary/pkg/domain-errors"

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "Email, password, and name are required")
	}
	return nil
}

func (r *RegisterRequest) Registration() Registration {
	return Registration{Email: r.Email, Password: r.Password, Name: r.Name}
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "Email and password are required")
	}
	return nil
}

func (r *LoginRequest) Credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

// UserResponse wraps the user with a status message.
type UserResponse struct {
	Message string     `json:"message"`
	User    PublicUser `json:"user"`
}

// MessageResponse is a bare status message.
type MessageResponse struct {
	Message string `json:"message"`
}
