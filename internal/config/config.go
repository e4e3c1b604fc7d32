package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	SMS      SMSConfig
	SMTP     SMTPConfig
	OTP      OTPConfig
	Token    TokenConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the OTP store backend, "redis" or "dynamodb".
type StoreConfig struct {
	Backend string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type SMSConfig struct {
	ProviderURL string
	APIKey      string
	SenderID    string
	Timeout     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type OTPConfig struct {
	Length int
	Expiry time.Duration
}

// TokenConfig configures the channel-verification token. An empty
// SecretKey disables token minting entirely.
type TokenConfig struct {
	SecretKey string
	Expiry    time.Duration
}

const (
	StoreBackendRedis    = "redis"
	StoreBackendDynamoDB = "dynamodb"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend: getEnv("OTP_STORE_BACKEND", StoreBackendRedis),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "OTPGateTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMS: SMSConfig{
			ProviderURL: getEnv("SMS_PROVIDER_URL", ""),
			APIKey:      getEnv("SMS_API_KEY", ""),
			SenderID:    getEnv("SMS_SENDER_ID", "OTPGate"),
			Timeout:     getEnvAsDuration("SMS_TIMEOUT", 10*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@otpgate.io"),
		},
		OTP: OTPConfig{
			Length: getEnvAsInt("OTP_LENGTH", 6),
			Expiry: getEnvAsDuration("OTP_EXPIRY", 5*time.Minute),
		},
		Token: TokenConfig{
			SecretKey: getEnv("TOKEN_SECRET_KEY", ""),
			Expiry:    getEnvAsDuration("TOKEN_EXPIRY", 15*time.Minute),
		},
	}

	if cfg.Store.Backend != StoreBackendRedis && cfg.Store.Backend != StoreBackendDynamoDB {
		return nil, fmt.Errorf("OTP_STORE_BACKEND must be %q or %q, got %q",
			StoreBackendRedis, StoreBackendDynamoDB, cfg.Store.Backend)
	}

	if cfg.OTP.Length < 4 || cfg.OTP.Length > 10 {
		return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", cfg.OTP.Length)
	}

	if cfg.Token.SecretKey != "" && len(cfg.Token.SecretKey) < 32 {
		return nil, fmt.Errorf("TOKEN_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
