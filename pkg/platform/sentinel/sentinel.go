// Package sentinel holds the store-level facts that services translate into
// domain errors. Stores may wrap them; callers match with errors.Is.
package sentinel

import "errors"

var (
	// ErrNotFound means no user, product or denylist row matched.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique key (user email, product id) is taken.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState rejects a write the store cannot honour, such as a
	// non-positive denylist TTL.
	ErrInvalidState = errors.New("invalid state")
)
