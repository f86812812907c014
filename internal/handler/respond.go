package handler

import (
	"encoding/json"
	"net/http"
)

// ErrorPayload is the standard error response body.
type ErrorPayload struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	TileID         int    `json:"tile_id,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
	SupportContact string `json:"support_contact,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorPayload{Status: "failed", Message: message})
}
