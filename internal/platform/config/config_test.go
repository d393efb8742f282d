package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
		"BCRYPT_COST", "REFRESH_ROTATION", "FRONTEND_URLS", "FRONTEND_URL", "KAFKA_BROKERS", "BACKEND_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, DefaultSigningKey, cfg.Auth.JWTSigningKey)
	assert.True(t, cfg.Auth.UsingDefaultSigningKey)
	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Auth.RefreshRotation)
	assert.Equal(t, "http://localhost:5000", cfg.Gateway.BackendURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Gateway.AllowedOrigins)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REFRESH_TOKEN_TTL", "24h")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("REFRESH_ROTATION", "true")
	t.Setenv("FRONTEND_URLS", "https://shop.jwelary.com, https://admin.jwelary.com")
	t.Setenv("FRONTEND_URL", "https://ignored.example")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("BACKEND_URL", "http://backend:5000/")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Auth.UsingDefaultSigningKey)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.RefreshRotation)
	assert.Equal(t, []string{"https://shop.jwelary.com", "https://admin.jwelary.com"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "http://backend:5000", cfg.Gateway.BackendURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("unparseable values are all reported", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "soon")
		t.Setenv("BCRYPT_COST", "twelve")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
		assert.Contains(t, err.Error(), "BCRYPT_COST")
	})

	t.Run("refresh shorter than access", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "3h")
		t.Setenv("REFRESH_TOKEN_TTL", "1h")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("bcrypt cost out of range", func(t *testing.T) {
		t.Setenv("BCRYPT_COST", "40")

		_, err := FromEnv()
		require.Error(t, err)
	})
}
