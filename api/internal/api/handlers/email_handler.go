package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"rebooked/api/internal/mailer"
	"rebooked/api/internal/telemetry"
)

// EmailHandler exposes the transactional-mail test endpoint used to verify
// provider connectivity and template rendering from staging.
type EmailHandler struct {
	mail     mailer.Mailer
	validate *validator.Validate
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

func NewEmailHandler(mail mailer.Mailer, metrics *telemetry.Metrics, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		mail:     mail,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  metrics,
		logger:   logger,
	}
}

type emailTestRequest struct {
	Type         string `json:"type" validate:"required,oneof=delivered_prompt received_yes received_no"`
	BuyerEmail   string `json:"buyer_email" validate:"omitempty,email"`
	SellerEmail  string `json:"seller_email" validate:"omitempty,email"`
	OrderID      string `json:"order_id"`
	BookTitle    string `json:"book_title"`
	BuyerName    string `json:"buyer_name"`
	SellerName   string `json:"seller_name"`
	IssueDetails string `json:"issue_details"`
}

type emailTestResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendTest handles POST /api/v1/email/test.
func (h *EmailHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req emailTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, emailTestResponse{Error: "Invalid JSON payload"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, emailTestResponse{Error: "Invalid email test request"})
		return
	}

	details := mailer.OrderDetails{
		OrderID:      req.OrderID,
		BookTitle:    req.BookTitle,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
		SellerName:   req.SellerName,
		SellerEmail:  req.SellerEmail,
		IssueDetails: req.IssueDetails,
	}

	var messages []mailer.Message
	var err error

	switch req.Type {
	case "delivered_prompt":
		if req.BuyerEmail == "" || req.OrderID == "" {
			writeJSON(w, http.StatusBadRequest, emailTestResponse{Error: "Provide buyer email and order id"})
			return
		}
		var msg mailer.Message
		msg, err = mailer.ComposeDeliveredPrompt(details)
		messages = []mailer.Message{msg}
	case "received_yes":
		if req.BuyerEmail == "" || req.SellerEmail == "" {
			writeJSON(w, http.StatusBadRequest, emailTestResponse{Error: "Provide buyer and seller emails"})
			return
		}
		messages, err = mailer.ComposeReceiptConfirmed(details)
	case "received_no":
		if req.BuyerEmail == "" || req.SellerEmail == "" {
			writeJSON(w, http.StatusBadRequest, emailTestResponse{Error: "Provide buyer and seller emails"})
			return
		}
		messages, err = mailer.ComposeIssueReported(details)
	}
	if err != nil {
		h.logger.Error("Failed to compose test mail", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, emailTestResponse{Error: "Failed to compose email"})
		return
	}

	for _, msg := range messages {
		if err := h.mail.Send(r.Context(), msg); err != nil {
			h.logger.Error("Mail provider failure", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, emailTestResponse{Error: "Failed to send email"})
			return
		}
		h.metrics.ObserveMail(req.Type)
	}

	writeJSON(w, http.StatusOK, emailTestResponse{Success: true, Sent: len(messages)})
}
