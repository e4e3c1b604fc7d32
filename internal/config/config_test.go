package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otpgate/otpgate/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "OTP_STORE_BACKEND", "DYNAMODB_ENDPOINT", "DYNAMODB_REGION",
		"DYNAMODB_TABLE_NAME", "REDIS_ENDPOINT", "REDIS_PASSWORD", "REDIS_DB",
		"SMS_PROVIDER_URL", "SMS_API_KEY", "SMS_SENDER_ID", "SMS_TIMEOUT",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"OTP_LENGTH", "OTP_EXPIRY", "TOKEN_SECRET_KEY", "TOKEN_EXPIRY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, config.StoreBackendRedis, cfg.Store.Backend)
		assert.Equal(t, "localhost:6379", cfg.Redis.Endpoint)
		assert.Equal(t, 6, cfg.OTP.Length)
		assert.Equal(t, 5*time.Minute, cfg.OTP.Expiry)
		assert.Equal(t, 587, cfg.SMTP.Port)
		assert.Empty(t, cfg.Token.SecretKey)
	})

	t.Run("reads overrides from the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OTP_STORE_BACKEND", "dynamodb")
		t.Setenv("OTP_LENGTH", "8")
		t.Setenv("OTP_EXPIRY", "2m")
		t.Setenv("REDIS_DB", "3")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, config.StoreBackendDynamoDB, cfg.Store.Backend)
		assert.Equal(t, 8, cfg.OTP.Length)
		assert.Equal(t, 2*time.Minute, cfg.OTP.Expiry)
		assert.Equal(t, 3, cfg.Redis.DB)
	})

	t.Run("rejects unknown store backends", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OTP_STORE_BACKEND", "cassandra")

		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("rejects OTP lengths outside the sane range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OTP_LENGTH", "2")

		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("rejects short token secrets", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOKEN_SECRET_KEY", "short")

		_, err := config.Load()
		assert.Error(t, err)
	})
}
