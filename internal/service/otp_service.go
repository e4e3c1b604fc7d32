package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/gateway"
	"github.com/otpgate/otpgate/internal/models"
	"github.com/sirupsen/logrus"
)

// OTPStore holds the current OTP record per (user, channel) key. Upsert
// must be atomic per key; FindOne returns nil, nil when no record exists.
type OTPStore interface {
	FindOne(ctx context.Context, userID string, channel models.Channel) (*models.OTPRecord, error)
	Upsert(ctx context.Context, record models.OTPRecord) error
	Delete(ctx context.Context, userID string, channel models.Channel) error
}

// UserDirectory resolves user identifiers to contact info and records
// channel verification. FindOne returns nil, nil for unknown users.
type UserDirectory interface {
	FindOne(ctx context.Context, userID string) (*models.User, error)
	MarkChannelVerified(ctx context.Context, userID string, channel models.Channel) error
}

// Result is the boundary-facing outcome of an engine operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const (
	msgVerified      = "OTP verified successfully!"
	msgInvalidOTP    = "Invalid OTP!"
	msgExpiredOTP    = "OTP has expired or is invalid"
	msgUserNotFound  = "User not found!"
	msgNoPhoneOnFile = "User has no phone number on file"
	msgNoEmailOnFile = "User has no email address on file"
	msgIssueFailure  = "Failed to generate OTP"
	msgVerifyFailure = "Failed to verify OTP"
	msgSendFailure   = "Failed to send OTP"
)

type OTPService struct {
	store  OTPStore
	users  UserDirectory
	sms    gateway.Gateway
	mail   gateway.Gateway
	cfg    *config.OTPConfig
	logger *logrus.Logger
}

func NewOTPService(
	store OTPStore,
	users UserDirectory,
	sms gateway.Gateway,
	mail gateway.Gateway,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		store:  store,
		users:  users,
		sms:    sms,
		mail:   mail,
		cfg:    cfg,
		logger: logger,
	}
}

// IssueOTP generates a fresh code for the user on the given channel,
// persists it, and dispatches it through the matching gateway. The store
// write happens before dispatch, so a flaky transport never loses the code;
// a failed dispatch leaves the record in place and is reported as a
// delivery failure without retry.
func (s *OTPService) IssueOTP(ctx context.Context, userID string, channel models.Channel) (Result, error) {
	user, err := s.users.FindOne(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to resolve user")
		return Result{Success: false, Message: msgIssueFailure}, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		return Result{Success: false, Message: msgUserNotFound}, ErrUserNotFound
	}

	contact := user.Contact(channel)
	if contact == "" {
		msg := msgNoPhoneOnFile
		if channel == models.ChannelMail {
			msg = msgNoEmailOnFile
		}
		return Result{Success: false, Message: msg},
			fmt.Errorf("%w: user %s has no contact for channel %s", ErrDeliveryFailed, userID, channel)
	}

	code, err := s.generateCode(s.cfg.Length)
	if err != nil {
		return Result{Success: false, Message: msgIssueFailure}, fmt.Errorf("failed to generate OTP: %w", err)
	}

	now := time.Now()
	record := models.OTPRecord{
		UserID:    userID,
		Channel:   channel,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Expiry),
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		return Result{Success: false, Message: msgIssueFailure}, fmt.Errorf("failed to store OTP: %w", err)
	}

	res, err := s.dispatch(ctx, channel, contact, code)
	if err != nil || !res.Success {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"channel": channel,
		}).WithError(err).Error("OTP dispatch failed")
		return Result{Success: false, Message: res.Message},
			fmt.Errorf("%w: %s", ErrDeliveryFailed, res.Message)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"channel":    channel,
		"message_id": res.MessageID,
		"expires_at": record.ExpiresAt.Format(time.RFC3339),
	}).Info("OTP issued")

	return Result{Success: true, Message: res.Message}, nil
}

// VerifyOTP checks a submitted code against the stored record. Expiry wins
// over mismatch when both apply. A successful verification consumes the
// record, so the same code never validates twice.
func (s *OTPService) VerifyOTP(ctx context.Context, userID, code string, channel models.Channel) (Result, error) {
	record, err := s.store.FindOne(ctx, userID, channel)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch OTP record")
		return Result{Success: false, Message: msgVerifyFailure}, fmt.Errorf("failed to fetch OTP record: %w", err)
	}

	if record == nil {
		// Distinguish "no such user" from "no pending OTP" internally;
		// the boundary collapses both into not-found.
		if user, derr := s.users.FindOne(ctx, userID); derr == nil && user == nil {
			return Result{Success: false, Message: msgUserNotFound}, ErrUserNotFound
		}
		return Result{Success: false, Message: msgUserNotFound}, ErrOTPNotFound
	}

	if record.Expired(time.Now()) {
		return Result{Success: false, Message: msgExpiredOTP}, ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return Result{Success: false, Message: msgInvalidOTP}, ErrInvalidOTP
	}

	// Single use: consume the record before reporting success.
	if err := s.store.Delete(ctx, userID, channel); err != nil {
		s.logger.WithError(err).Warn("Failed to delete consumed OTP record")
	}

	// Fire-and-forget: a failed directory update is logged but does not
	// change the verification outcome.
	if err := s.users.MarkChannelVerified(ctx, userID, channel); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"channel": channel,
		}).Error("Failed to mark channel verified")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"channel": channel,
	}).Info("OTP verified")

	return Result{Success: true, Message: msgVerified}, nil
}

func (s *OTPService) dispatch(ctx context.Context, channel models.Channel, contact, code string) (gateway.Result, error) {
	switch channel {
	case models.ChannelSMS:
		return s.sms.Send(ctx, contact, code)
	case models.ChannelMail:
		return s.mail.Send(ctx, contact, code)
	default:
		return gateway.Result{Success: false, Message: msgSendFailure},
			fmt.Errorf("unknown channel type %q", channel)
	}
}

func (s *OTPService) generateCode(length int) (string, error) {
	code := ""
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code += num.String()
	}
	return code, nil
}
