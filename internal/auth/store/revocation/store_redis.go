package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"jwelary/internal/platform/metrics"
	xstrings "jwelary/pkg/platform/strings"
)

const revokedTokenKeyPrefix = "trl:jti:"

// RedisTRL is the shared denylist for multi-instance deployments.
type RedisTRL struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// RedisTRLOption configures a RedisTRL instance.
type RedisTRLOption func(*RedisTRL)

// WithRedisMetrics records lookup latency.
func WithRedisMetrics(m *metrics.Metrics) RedisTRLOption {
	return func(t *RedisTRL) { t.metrics = m }
}

func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken sets a marker key that expires with the token.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return t.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

// RevokeTokens pipelines one SET per jti.
func (t *RedisTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	jtis = xstrings.DedupeAndTrim(jtis)
	if len(jtis) == 0 {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	pipe := t.client.Pipeline()
	for _, jti := range jtis {
		pipe.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// IsRevoked returns false if the key doesn't exist (never revoked or expired).
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	defer t.metrics.ObserveDenylistCheck("redis", time.Now())

	if jti == "" {
		return false, nil
	}
	err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConsumeOnce uses SETNX so exactly one concurrent caller wins.
func (t *RedisTRL) ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	return t.client.SetNX(ctx, revokedTokenKeyPrefix+consumedPrefix+jti, "1", ttl).Result()
}
