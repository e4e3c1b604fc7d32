package models

import (
	"time"
)

type User struct {
	ID            string    `json:"id" dynamodbav:"id"`
	Name          string    `json:"name,omitempty" dynamodbav:"name,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	Email         string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	PhoneVerified bool      `json:"phone_verified" dynamodbav:"phone_verified"`
	EmailVerified bool      `json:"email_verified" dynamodbav:"email_verified"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (u *User) GetPK() string {
	return "USER#" + u.ID
}

func (u *User) GetSK() string {
	return "METADATA"
}

// Contact returns the contact field an OTP would be delivered to for the
// given channel, or "" when the user has none on file.
func (u *User) Contact(channel Channel) string {
	switch channel {
	case ChannelSMS:
		return u.PhoneNumber
	case ChannelMail:
		return u.Email
	}
	return ""
}
