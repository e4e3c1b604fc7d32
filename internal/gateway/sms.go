package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/otpgate/otpgate/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	smsSentMessage   = "SMS sent successfully"
	smsFailedMessage = "Failed to send SMS"
)

// SMSGateway sends codes through an HTTP SMS provider.
type SMSGateway struct {
	providerURL string
	apiKey      string
	senderID    string
	httpClient  *http.Client
	logger      *logrus.Logger
}

func NewSMSGateway(cfg *config.SMSConfig, logger *logrus.Logger) *SMSGateway {
	return &SMSGateway{
		providerURL: cfg.ProviderURL,
		apiKey:      cfg.APIKey,
		senderID:    cfg.SenderID,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type smsProviderRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

type smsProviderResponse struct {
	MessageID string `json:"message_id"`
}

func (g *SMSGateway) Send(ctx context.Context, to, code string) (Result, error) {
	payload, err := json.Marshal(smsProviderRequest{
		To:   to,
		From: g.senderID,
		Body: fmt.Sprintf("Your verification code is %s", code),
	})
	if err != nil {
		return Result{Success: false, Message: smsFailedMessage}, fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.providerURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Success: false, Message: smsFailedMessage}, fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.WithError(err).Error("SMS provider request failed")
		return Result{Success: false, Message: smsFailedMessage}, fmt.Errorf("sms provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WithField("status", resp.StatusCode).Error("SMS provider rejected send")
		return Result{Success: false, Message: smsFailedMessage}, fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	var providerResp smsProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil || providerResp.MessageID == "" {
		// Some providers return an empty body on success.
		providerResp.MessageID = uuid.New().String()
	}

	g.logger.WithFields(logrus.Fields{
		"to":         to,
		"message_id": providerResp.MessageID,
	}).Info("SMS dispatched")

	return Result{
		Success:   true,
		Message:   smsSentMessage,
		MessageID: providerResp.MessageID,
	}, nil
}
