package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"pixelwall/internal/service"
)

type LockHandler struct {
	logger      *log.Logger
	coordinator *service.Coordinator
}

func NewLockHandler(logger *log.Logger, coordinator *service.Coordinator) *LockHandler {
	return &LockHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

type LockStatusPayload struct {
	Locked           bool    `json:"locked"`
	RemainingSeconds float64 `json:"remaining_seconds,omitempty"`
}

type LockGrantPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LockReleasePayload struct {
	Token string `json:"token"`
}

func (h *LockHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.coordinator.CheckLock(r.Context())
	if err != nil {
		h.logger.Printf("Lock status read failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read lock state")
		return
	}
	writeJSON(w, http.StatusOK, LockStatusPayload{
		Locked:           status.Locked,
		RemainingSeconds: status.Remaining.Round(time.Second).Seconds(),
	})
}

func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	grant, err := h.coordinator.AcquireLock(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLockUnavailable):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrLockAcquireFailed):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			h.logger.Printf("Unexpected lock acquire error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to acquire lock")
		}
		return
	}
	writeJSON(w, http.StatusOK, LockGrantPayload{
		Token:     grant.Token,
		ExpiresAt: grant.ExpiresAt,
	})
}

func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	var payload LockReleasePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.coordinator.ReleaseLock(r.Context(), payload.Token); err != nil {
		h.logger.Printf("Lock release failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to release lock")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}
