package models

import (
	"fmt"
	"time"
)

// Channel is the delivery medium for an OTP.
type Channel string

const (
	ChannelSMS  Channel = "sms"
	ChannelMail Channel = "mail"
)

// ParseChannel maps a request-level type string to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelSMS:
		return ChannelSMS, nil
	case ChannelMail:
		return ChannelMail, nil
	default:
		return "", fmt.Errorf("unknown channel type %q", s)
	}
}

// OTPRecord is the live code for one (user, channel) pair. At most one
// record exists per key; a new issuance replaces the previous one.
type OTPRecord struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Channel   Channel   `json:"channel_type" dynamodbav:"channel_type"`
	Code      string    `json:"code" dynamodbav:"code"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}

func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *OTPRecord) GetPK() string {
	return "OTP#" + r.UserID
}

func (r *OTPRecord) GetSK() string {
	return "CHANNEL#" + string(r.Channel)
}
