package revocation

import (
	"context"
	"log/slog"
	"time"

	"jwelary/internal/platform/metrics"
	"jwelary/pkg/platform/circuit"
)

// Store is the denylist contract shared by every backend.
type Store interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// ResilientTRL fronts a shared primary (Redis) with a process-local fallback.
//
// Every write is mirrored to the fallback, so revocations made on this
// instance survive a primary outage. Reads consult both. Primary errors are
// fed to a circuit breaker; once it opens, errors are absorbed and the
// fallback answers alone until enough primary successes close it again.
type ResilientTRL struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewResilientTRL(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *ResilientTRL {
	return &ResilientTRL{primary: primary, fallback: fallback, breaker: breaker, logger: logger, metrics: m}
}

func (r *ResilientTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.fallback.RevokeToken(ctx, jti, ttl); err != nil {
		return err
	}
	return r.absorb(ctx, r.primary.RevokeToken(ctx, jti, ttl))
}

func (r *ResilientTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	if err := r.fallback.RevokeTokens(ctx, jtis, ttl); err != nil {
		return err
	}
	return r.absorb(ctx, r.primary.RevokeTokens(ctx, jtis, ttl))
}

func (r *ResilientTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	local, err := r.fallback.IsRevoked(ctx, jti)
	if err != nil {
		return false, err
	}
	if local {
		return true, nil
	}
	shared, err := r.primary.IsRevoked(ctx, jti)
	if err != nil {
		return false, r.absorb(ctx, err)
	}
	r.recordSuccess(ctx)
	return shared, nil
}

// ConsumeOnce trusts the primary while it answers. During an outage the
// fallback decides, which only detects reuse seen by this instance.
func (r *ResilientTRL) ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	first, err := r.primary.ConsumeOnce(ctx, jti, ttl)
	if err != nil {
		if absorbed := r.absorb(ctx, err); absorbed != nil {
			return false, absorbed
		}
		return r.fallback.ConsumeOnce(ctx, jti, ttl)
	}
	r.recordSuccess(ctx)
	_, _ = r.fallback.ConsumeOnce(ctx, jti, ttl)
	return first, nil
}

// absorb records a primary outcome. A primary error is returned to the caller
// only while the circuit is still closed.
func (r *ResilientTRL) absorb(ctx context.Context, err error) error {
	if err == nil {
		r.recordSuccess(ctx)
		return nil
	}
	useFallback, change := r.breaker.RecordFailure()
	if change.Opened {
		r.logger.ErrorContext(ctx, "denylist primary unavailable, serving from fallback",
			"breaker", r.breaker.Name(),
			"error", err,
		)
		r.metrics.SetDenylistFallback(true)
	}
	if useFallback {
		return nil
	}
	return err
}

func (r *ResilientTRL) recordSuccess(ctx context.Context) {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "denylist primary recovered",
			"breaker", r.breaker.Name(),
		)
		r.metrics.SetDenylistFallback(false)
	}
}
