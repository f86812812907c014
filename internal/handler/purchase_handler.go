package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pixelwall/internal/models"
	"pixelwall/internal/service"
)

type PurchaseHandler struct {
	logger         *log.Logger
	coordinator    *service.Coordinator
	supportContact string
}

func NewPurchaseHandler(logger *log.Logger, coordinator *service.Coordinator, supportContact string) *PurchaseHandler {
	return &PurchaseHandler{
		logger:         logger,
		coordinator:    coordinator,
		supportContact: supportContact,
	}
}

type PurchaseRequestPayload struct {
	TileID        int                 `json:"tile_id"`
	Token         string              `json:"token"`
	Price         int64               `json:"price"`
	TransactionID string              `json:"transaction_id"`
	Profile       models.BuyerProfile `json:"profile"`
}

type PurchaseResponsePayload struct {
	Status        string       `json:"status"`
	Message       string       `json:"message,omitempty"`
	Tile          *models.Tile `json:"tile,omitempty"`
	CelebrityID   string       `json:"celebrity_id,omitempty"`
	TransactionID string       `json:"transaction_id,omitempty"`
}

func (h *PurchaseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Printf("Method not allowed for /purchase: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload PurchaseRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase payload")
		return
	}
	if payload.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if payload.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	receipt, err := h.coordinator.CommitPurchase(r.Context(), service.CommitRequest{
		TileID:        payload.TileID,
		Token:         payload.Token,
		Profile:       payload.Profile,
		Price:         payload.Price,
		TransactionID: payload.TransactionID,
	})
	if err != nil {
		// Payment was captured before commit, so every failure here
		// must carry the transaction id and a support path.
		var rejected *service.PurchaseRejectedError
		if errors.As(err, &rejected) {
			h.logger.Printf("Purchase rejected: %v", rejected)
			writeJSON(w, http.StatusConflict, ErrorPayload{
				Status:         "rejected",
				Message:        rejected.Reason,
				TileID:         rejected.TileID,
				TransactionID:  rejected.TransactionID,
				SupportContact: h.supportContact,
			})
			return
		}

		h.logger.Printf("Purchase failed for tile %d (payment %s): %v",
			payload.TileID, payload.TransactionID, err)
		writeJSON(w, http.StatusInternalServerError, ErrorPayload{
			Status:         "failed",
			Message:        "purchase processing failed, contact support with your transaction id",
			TileID:         payload.TileID,
			TransactionID:  payload.TransactionID,
			SupportContact: h.supportContact,
		})
		return
	}

	writeJSON(w, http.StatusOK, PurchaseResponsePayload{
		Status:        "success",
		Message:       "Tile purchased successfully",
		Tile:          receipt.Tile,
		CelebrityID:   receipt.CelebrityID,
		TransactionID: receipt.TransactionID,
	})
}
