// Package revocation is the token denylist: jtis (and refresh families) that
// must be rejected before their natural expiry.
//
// Every implementation offers the same four operations. ConsumeOnce records
// single-use consumption in a namespace separate from revocations, so a
// consumed refresh token presented again is reported as reuse rather than as
// merely revoked.
package revocation

import (
	"fmt"
	"time"

	"jwelary/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

const consumedPrefix = "consumed:"

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
