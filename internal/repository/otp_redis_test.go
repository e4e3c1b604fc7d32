package repository_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/gateway"
	"github.com/otpgate/otpgate/internal/models"
	"github.com/otpgate/otpgate/internal/repository"
	"github.com/otpgate/otpgate/internal/service"
)

func newRedisStore(t *testing.T) (*repository.RedisOTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return repository.NewRedisOTPStore(client, logger), mr
}

func testRecord(code string, ttl time.Duration) models.OTPRecord {
	now := time.Now()
	return models.OTPRecord{
		UserID:    "user-1",
		Channel:   models.ChannelSMS,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestRedisOTPStore(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert then find returns the record", func(t *testing.T) {
		store, _ := newRedisStore(t)
		record := testRecord("123456", 5*time.Minute)
		require.NoError(t, store.Upsert(ctx, record))

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "123456", got.Code)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, models.ChannelSMS, got.Channel)
		assert.WithinDuration(t, record.ExpiresAt, got.ExpiresAt, time.Second)
	})

	t.Run("missing key returns nil without error", func(t *testing.T) {
		store, _ := newRedisStore(t)
		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("keys are scoped per channel", func(t *testing.T) {
		store, _ := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("123456", 5*time.Minute)))

		got, err := store.FindOne(ctx, "user-1", models.ChannelMail)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert replaces the prior record for the key", func(t *testing.T) {
		store, _ := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("111111", 5*time.Minute)))
		require.NoError(t, store.Upsert(ctx, testRecord("222222", 5*time.Minute)))

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "222222", got.Code)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		store, _ := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("123456", 5*time.Minute)))
		require.NoError(t, store.Delete(ctx, "user-1", models.ChannelSMS))

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("elapsed records stay readable for expiry classification", func(t *testing.T) {
		store, mr := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("123456", time.Minute)))

		// Past the validity window but within the retention grace: Redis
		// must not have swept the key, the engine decides expiry.
		mr.FastForward(2 * time.Minute)

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "123456", got.Code)
	})

	t.Run("accepts records whose window already elapsed", func(t *testing.T) {
		store, _ := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("123456", -time.Minute)))

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Expired(time.Now()))
	})

	t.Run("records are garbage-collected after the grace period", func(t *testing.T) {
		store, mr := newRedisStore(t)
		require.NoError(t, store.Upsert(ctx, testRecord("123456", time.Minute)))

		mr.FastForward(2 * time.Hour)

		got, err := store.FindOne(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

type stubDirectory struct{}

func (stubDirectory) FindOne(_ context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, PhoneNumber: "1234567890", Email: "test@example.com"}, nil
}

func (stubDirectory) MarkChannelVerified(_ context.Context, _ string, _ models.Channel) error {
	return nil
}

type stubGateway struct {
	lastCode string
}

func (g *stubGateway) Send(_ context.Context, _, code string) (gateway.Result, error) {
	g.lastCode = code
	return gateway.Result{Success: true, Message: "SMS sent successfully", MessageID: "msg-1"}, nil
}

func TestVerifyOTPAgainstRedisStore(t *testing.T) {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.OTPConfig{Length: 6, Expiry: 5 * time.Minute}

	t.Run("issue then verify round trips through Redis", func(t *testing.T) {
		store, _ := newRedisStore(t)
		sms := &stubGateway{}
		svc := service.NewOTPService(store, stubDirectory{}, sms, &stubGateway{}, cfg, logger)

		_, err := svc.IssueOTP(ctx, "user-1", models.ChannelSMS)
		require.NoError(t, err)

		res, err := svc.VerifyOTP(ctx, "user-1", sms.lastCode, models.ChannelSMS)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "OTP verified successfully!", res.Message)
	})

	t.Run("elapsed window reports expiry, not a missing record", func(t *testing.T) {
		store, _ := newRedisStore(t)
		svc := service.NewOTPService(store, stubDirectory{}, &stubGateway{}, &stubGateway{}, cfg, logger)

		require.NoError(t, store.Upsert(ctx, testRecord("123456", -time.Minute)))

		res, err := svc.VerifyOTP(ctx, "user-1", "123456", models.ChannelSMS)
		assert.ErrorIs(t, err, service.ErrOTPExpired)
		assert.False(t, res.Success)
		assert.Equal(t, "OTP has expired or is invalid", res.Message)
	})
}
