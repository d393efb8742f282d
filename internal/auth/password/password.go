// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"golang.org/x/crypto/bcrypt"

	dErrors "jwelary/pkg/domain-errors"
)

// DefaultCost is the bcrypt work factor for user passwords.
const DefaultCost = 12

// MaxLength is the number of password bytes bcrypt reads. Longer passwords
// are truncated on both hash and verify.
const MaxLength = 72

// Hasher hashes with a fixed cost.
type Hasher struct {
	cost int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCost overrides the bcrypt cost. Out-of-range values are ignored.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of the first MaxLength bytes.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes verify
// false.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plaintext)) == nil
}

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxLength {
		return b[:MaxLength]
	}
	return b
}
