package gateway

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/otpgate/otpgate/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	mailSentMessage   = "Mail sent successfully"
	mailFailedMessage = "Failed to send mail"
)

// MailGateway sends codes by email over SMTP.
type MailGateway struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *logrus.Logger

	// sendMail is swappable so tests can run without an SMTP server.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailGateway(cfg *config.SMTPConfig, logger *logrus.Logger) *MailGateway {
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &MailGateway{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:     cfg.From,
		auth:     auth,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

func (g *MailGateway) Send(ctx context.Context, to, code string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Message: mailFailedMessage}, err
	}

	headers := []string{
		fmt.Sprintf("From: %s", g.from),
		fmt.Sprintf("To: %s", to),
		"Subject: Your verification code",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	body := fmt.Sprintf("Your verification code is %s. It expires shortly, do not share it with anyone.", code)
	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	if err := g.sendMail(g.addr, g.auth, g.from, []string{to}, []byte(raw)); err != nil {
		g.logger.WithError(err).Error("SMTP send failed")
		return Result{Success: false, Message: mailFailedMessage}, fmt.Errorf("smtp send failed: %w", err)
	}

	messageID := uuid.New().String()
	g.logger.WithFields(logrus.Fields{
		"to":         to,
		"message_id": messageID,
	}).Info("Mail dispatched")

	return Result{
		Success:   true,
		Message:   mailSentMessage,
		MessageID: messageID,
	}, nil
}
