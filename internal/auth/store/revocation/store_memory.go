package revocation

import (
	"context"
	"sync"
	"time"

	xstrings "jwelary/pkg/platform/strings"
)

// InMemoryTRL is a process-local denylist. Entries expire lazily on read and
// are purged on write.
type InMemoryTRL struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   Clock
}

// InMemoryOption configures an InMemoryTRL.
type InMemoryOption func(*InMemoryTRL)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryOption) *InMemoryTRL {
	t := &InMemoryTRL{entries: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.purgeLocked()
	t.extendLocked(jti, t.clock().Add(ttl))
	return nil
}

func (t *InMemoryTRL) RevokeTokens(_ context.Context, jtis []string, ttl time.Duration) error {
	jtis = xstrings.DedupeAndTrim(jtis)
	if len(jtis) == 0 {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.purgeLocked()
	expiresAt := t.clock().Add(ttl)
	for _, jti := range jtis {
		t.extendLocked(jti, expiresAt)
	}
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveLocked(jti), nil
}

func (t *InMemoryTRL) ConsumeOnce(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	key := consumedPrefix + jti
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.liveLocked(key) {
		return false, nil
	}
	t.entries[key] = t.clock().Add(ttl)
	return true, nil
}

// Len reports live and not-yet-purged entries.
func (t *InMemoryTRL) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *InMemoryTRL) liveLocked(key string) bool {
	expiresAt, ok := t.entries[key]
	if !ok {
		return false
	}
	if !t.clock().Before(expiresAt) {
		delete(t.entries, key)
		return false
	}
	return true
}

// extendLocked never shortens an existing revocation.
func (t *InMemoryTRL) extendLocked(key string, expiresAt time.Time) {
	if cur, ok := t.entries[key]; ok && cur.After(expiresAt) {
		return
	}
	t.entries[key] = expiresAt
}

func (t *InMemoryTRL) purgeLocked() {
	now := t.clock()
	for key, expiresAt := range t.entries {
		if !now.Before(expiresAt) {
			delete(t.entries, key)
		}
	}
}
