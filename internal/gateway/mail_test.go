package gateway

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otpgate/otpgate/internal/config"
)

func TestMailGatewaySend(t *testing.T) {
	ctx := context.Background()

	cfg := &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@otpgate.io",
	}

	t.Run("sends a plain-text message carrying the code", func(t *testing.T) {
		g := NewMailGateway(cfg, testLogger())

		var gotAddr, gotFrom string
		var gotTo []string
		var gotMsg []byte
		g.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		}

		res, err := g.Send(ctx, "test@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Mail sent successfully", res.Message)
		assert.NotEmpty(t, res.MessageID)

		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, "no-reply@otpgate.io", gotFrom)
		assert.Equal(t, []string{"test@example.com"}, gotTo)
		assert.Contains(t, string(gotMsg), "Subject: Your verification code")
		assert.Contains(t, string(gotMsg), "123456")
	})

	t.Run("smtp failure reports a delivery failure", func(t *testing.T) {
		g := NewMailGateway(cfg, testLogger())
		g.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}

		res, err := g.Send(ctx, "test@example.com", "123456")
		assert.Error(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Failed to send mail", res.Message)
	})

	t.Run("cancelled context aborts before sending", func(t *testing.T) {
		g := NewMailGateway(cfg, testLogger())
		called := false
		g.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			called = true
			return nil
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := g.Send(cancelled, "test@example.com", "123456")
		assert.Error(t, err)
		assert.False(t, res.Success)
		assert.False(t, called)
	})
}
