package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"pixelwall/internal/payment"
)

type PaymentHandler struct {
	logger    *log.Logger
	processor payment.Processor
}

func NewPaymentHandler(logger *log.Logger, processor payment.Processor) *PaymentHandler {
	return &PaymentHandler{
		logger:    logger,
		processor: processor,
	}
}

type PaymentRequestPayload struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (h *PaymentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload PaymentRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment payload")
		return
	}
	if payload.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	approval, err := h.processor.Initiate(r.Context(), payload.Amount, payload.Description)
	if err != nil {
		// No approval means no money moved; the client may retry.
		h.logger.Printf("Payment initiation failed: %v", err)
		writeError(w, http.StatusBadGateway, "payment failed before approval, safe to retry")
		return
	}

	writeJSON(w, http.StatusOK, approval)
}
