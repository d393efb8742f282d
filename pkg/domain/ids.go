// Package domain holds typed identifiers and enums shared across the auth and
// catalog packages. Typed IDs keep a product ID from being passed where a user
// ID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "jwelary/pkg/domain-errors"
)

// UserID identifies a user record.
type UserID uuid.UUID

// ProductID identifies a catalog product.
type ProductID uuid.UUID

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewProductID returns a fresh random product ID.
func NewProductID() ProductID { return ProductID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) String() string { return uuid.UUID(id).String() }
func (id ProductID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses s, rejecting empty, malformed and nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseProductID parses s, rejecting empty, malformed and nil UUIDs.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s, "product ID")
	return ProductID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
