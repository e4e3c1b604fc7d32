package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/models"
	"github.com/sirupsen/logrus"
)

// TokenService mints short-lived proof-of-possession tokens handed back to
// callers after a successful verification.
type TokenService struct {
	secretKey []byte
	expiry    time.Duration
	logger    *logrus.Logger
}

func NewTokenService(cfg *config.TokenConfig, logger *logrus.Logger) (*TokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &TokenService{
		secretKey: secretKey,
		expiry:    cfg.Expiry,
		logger:    logger,
	}, nil
}

type VerificationClaims struct {
	Channel string `json:"channel"`
	jwt.RegisteredClaims
}

// MintVerificationToken signs a token asserting that userID proved
// possession of the given channel just now.
func (s *TokenService) MintVerificationToken(userID string, channel models.Channel) (string, error) {
	now := time.Now()
	claims := &VerificationClaims{
		Channel: string(channel),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign verification token")
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}

	return tokenString, nil
}

func (s *TokenService) VerifyToken(tokenString string) (*VerificationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
