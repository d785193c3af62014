package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"rebooked/api/internal/api/middleware"
	"rebooked/api/internal/core/domain"
	"rebooked/api/internal/core/services"
	"rebooked/api/internal/infrastructure/crypto"
	"rebooked/api/internal/telemetry"
)

// BankingService is the slice of the protection workflow the handler needs.
type BankingService interface {
	ProtectRecord(ctx context.Context, ownerID uuid.UUID, overrides map[string]string) (*services.ProtectionResult, error)
}

// BankingHandler exposes the banking-details protection endpoint. It depends
// purely on the service interface, unaware of Postgres or key material.
type BankingHandler struct {
	service BankingService
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewBankingHandler(service BankingService, metrics *telemetry.Metrics, logger *slog.Logger) *BankingHandler {
	return &BankingHandler{service: service, metrics: metrics, logger: logger}
}

// protectRequest carries the optional plaintext overrides. Absent fields
// fall back to the record's stored plaintext values.
type protectRequest struct {
	AccountNumber *string `json:"account_number"`
	BankCode      *string `json:"bank_code"`
	BankName      *string `json:"bank_name"`
	BusinessName  *string `json:"business_name"`
	Email         *string `json:"email"`
}

type protectResponse struct {
	Success       bool                       `json:"success"`
	UpdatedFields []string                   `json:"updatedFields"`
	Data          map[string]domain.Envelope `json:"data,omitempty"`
	Message       string                     `json:"message,omitempty"`
	Error         string                     `json:"error,omitempty"`
}

// Protect handles POST /api/v1/banking/protect.
func (h *BankingHandler) Protect(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, protectResponse{Success: false, Error: "Unauthorized - please login first"})
		return
	}

	// Overrides are optional: an absent or unparseable body simply means
	// "fall back to the stored plaintext values".
	var req protectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = protectRequest{}
	}

	overrides := make(map[string]string)
	for name, value := range map[string]*string{
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"bank_name":      req.BankName,
		"business_name":  req.BusinessName,
		"email":          req.Email,
	} {
		if value != nil && *value != "" {
			overrides[name] = *value
		}
	}

	result, err := h.service.ProtectRecord(r.Context(), identity.UserID, overrides)
	if err != nil {
		h.metrics.ObserveProtection("error", nil)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			writeJSON(w, http.StatusNotFound, protectResponse{Success: false, Error: "No banking record found for user"})
		case errors.Is(err, crypto.ErrKeyNotConfigured):
			writeJSON(w, http.StatusInternalServerError, protectResponse{Success: false, Error: "Encryption key not configured"})
		default:
			// 🛡️ Log the real error internally, return a stable message: no
			// stack traces, no key material, no plaintext leaves the process.
			h.logger.Error("Failed to encrypt banking details", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, protectResponse{Success: false, Error: "Failed to encrypt banking details"})
		}
		return
	}

	if len(result.UpdatedFields) == 0 {
		h.metrics.ObserveProtection("noop", nil)
		writeJSON(w, http.StatusOK, protectResponse{
			Success:       true,
			UpdatedFields: []string{},
			Message:       "Nothing to encrypt",
		})
		return
	}

	h.metrics.ObserveProtection("updated", result.UpdatedFields)
	writeJSON(w, http.StatusOK, protectResponse{
		Success:       true,
		UpdatedFields: result.UpdatedFields,
		Data:          result.Envelopes,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
