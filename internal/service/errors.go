package service

import "errors"

// Failure kinds surfaced by the OTP engine. Every failure is terminal for
// the current call; the boundary layer chooses its own status mapping.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrOTPNotFound    = errors.New("no pending OTP for user")
	ErrOTPExpired     = errors.New("OTP expired")
	ErrInvalidOTP     = errors.New("invalid OTP")
	ErrDeliveryFailed = errors.New("delivery failed")
)
