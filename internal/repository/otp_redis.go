package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/otpgate/otpgate/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// expiryGrace keeps elapsed records readable past their window. Expiry is
// classified at verification time from the record's expires_at, so Redis
// must not sweep the key the instant the window closes; the TTL only
// garbage-collects records nobody verified.
const expiryGrace = time.Hour

// RedisOTPStore keeps the live OTP record per (user, channel) key as a JSON
// blob. SET is atomic per key, so concurrent issuances resolve
// last-write-wins.
type RedisOTPStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisOTPStore(client *redis.Client, logger *logrus.Logger) *RedisOTPStore {
	return &RedisOTPStore{
		client: client,
		logger: logger,
	}
}

func otpKey(userID string, channel models.Channel) string {
	return fmt.Sprintf("otp:%s:%s", userID, channel)
}

func (s *RedisOTPStore) Upsert(ctx context.Context, record models.OTPRecord) error {
	dataJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP record: %w", err)
	}

	ttl := time.Until(record.ExpiresAt) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}
	if err := s.client.Set(ctx, otpKey(record.UserID, record.Channel), dataJSON, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store OTP in Redis")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

func (s *RedisOTPStore) FindOne(ctx context.Context, userID string, channel models.Channel) (*models.OTPRecord, error) {
	dataJSON, err := s.client.Get(ctx, otpKey(userID, channel)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get OTP from Redis")
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal([]byte(dataJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP record: %w", err)
	}

	return &record, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, userID string, channel models.Channel) error {
	if err := s.client.Del(ctx, otpKey(userID, channel)).Err(); err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}
	return nil
}
