package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/otpgate/otpgate/internal/models"
	"github.com/otpgate/otpgate/internal/service"
	"github.com/sirupsen/logrus"
)

type OTPHandlers struct {
	otpService   *service.OTPService
	tokenService *service.TokenService // nil when tokens are disabled
	logger       *logrus.Logger
}

func NewOTPHandlers(
	otpService *service.OTPService,
	tokenService *service.TokenService,
	logger *logrus.Logger,
) *OTPHandlers {
	return &OTPHandlers{
		otpService:   otpService,
		tokenService: tokenService,
		logger:       logger,
	}
}

type SendOTPRequest struct {
	UserID string `json:"user_id"`
}

type VerifyOTPRequest struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
	Type   string `json:"type"`
}

type OTPResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	VerificationToken string `json:"verification_token,omitempty"`
}

func (h *OTPHandlers) SendSMSOTP(w http.ResponseWriter, r *http.Request) {
	h.sendOTP(w, r, models.ChannelSMS)
}

func (h *OTPHandlers) SendMailOTP(w http.ResponseWriter, r *http.Request) {
	h.sendOTP(w, r, models.ChannelMail)
}

func (h *OTPHandlers) sendOTP(w http.ResponseWriter, r *http.Request, channel models.Channel) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, OTPResponse{Success: false, Message: "Invalid request body"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		h.respondWithJSON(w, http.StatusBadRequest, OTPResponse{Success: false, Message: "user_id is required"})
		return
	}

	res, err := h.otpService.IssueOTP(r.Context(), userID, channel)
	h.respondWithResult(w, res, err, "")
}

func (h *OTPHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, OTPResponse{Success: false, Message: "Invalid request body"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	otp := strings.TrimSpace(req.OTP)
	if userID == "" || otp == "" {
		h.respondWithJSON(w, http.StatusBadRequest, OTPResponse{Success: false, Message: "user_id and otp are required"})
		return
	}

	channel, err := models.ParseChannel(req.Type)
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, OTPResponse{Success: false, Message: "type must be sms or mail"})
		return
	}

	res, verr := h.otpService.VerifyOTP(r.Context(), userID, otp, channel)

	token := ""
	if verr == nil && h.tokenService != nil {
		token, err = h.tokenService.MintVerificationToken(userID, channel)
		if err != nil {
			h.logger.WithError(err).Error("Failed to mint verification token")
			token = "" // verification itself still succeeded
		}
	}

	h.respondWithResult(w, res, verr, token)
}

// respondWithResult maps engine failure kinds onto transport status codes:
// not-found conditions become 404, rejected or failed operations become 500,
// success stays 200 with the engine's own message.
func (h *OTPHandlers) respondWithResult(w http.ResponseWriter, res service.Result, err error, token string) {
	switch {
	case err == nil:
		h.respondWithJSON(w, http.StatusOK, OTPResponse{
			Success:           true,
			Message:           res.Message,
			VerificationToken: token,
		})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrOTPNotFound):
		h.respondWithJSON(w, http.StatusNotFound, OTPResponse{Success: false, Message: res.Message})
	case errors.Is(err, service.ErrDeliveryFailed),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrInvalidOTP):
		h.respondWithJSON(w, http.StatusInternalServerError, OTPResponse{Success: false, Message: res.Message})
	default:
		h.logger.WithError(err).Error("Unhandled OTP failure")
		h.respondWithJSON(w, http.StatusInternalServerError, OTPResponse{Success: false, Message: "Internal server error"})
	}
}

func (h *OTPHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
