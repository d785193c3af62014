package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rebooked/api/internal/core/domain"
	"rebooked/api/internal/core/services"
	"rebooked/api/internal/telemetry"
)

// ReferralHandler exposes affiliate referral tracking.
type ReferralHandler struct {
	service  *services.ReferralService
	validate *validator.Validate
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

func NewReferralHandler(service *services.ReferralService, metrics *telemetry.Metrics, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  metrics,
		logger:   logger,
	}
}

type trackReferralRequest struct {
	AffiliateCode string `json:"affiliate_code" validate:"required"`
	NewUserID     string `json:"new_user_id" validate:"required,uuid"`
}

type trackReferralResponse struct {
	Success  bool             `json:"success"`
	Referral *domain.Referral `json:"referral,omitempty"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Track handles POST /api/v1/referrals/track.
func (h *ReferralHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, trackReferralResponse{Error: "Invalid JSON payload"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, trackReferralResponse{Error: "affiliate_code and new_user_id are required"})
		return
	}

	newUserID, err := uuid.Parse(req.NewUserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, trackReferralResponse{Error: "new_user_id must be a valid uuid"})
		return
	}

	outcome, err := h.service.TrackReferral(r.Context(), req.AffiliateCode, newUserID)
	if err != nil {
		if errors.Is(err, domain.ErrAffiliateNotFound) {
			writeJSON(w, http.StatusNotFound, trackReferralResponse{Error: "Invalid affiliate code"})
			return
		}
		h.logger.Error("Failed to track referral", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, trackReferralResponse{Error: "Internal server error"})
		return
	}

	if outcome.AlreadyReferred {
		writeJSON(w, http.StatusOK, trackReferralResponse{Success: true, Message: "User already has a referrer"})
		return
	}

	h.metrics.ObserveReferral()
	writeJSON(w, http.StatusOK, trackReferralResponse{Success: true, Referral: outcome.Referral})
}
