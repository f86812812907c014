package handler

import (
	"io"
	"log"
	"net/http"

	"pixelwall/internal/assets"
)

const maxUploadBytes = 5 << 20

type UploadHandler struct {
	logger *log.Logger
	store  *assets.Store
}

func NewUploadHandler(logger *log.Logger, store *assets.Store) *UploadHandler {
	return &UploadHandler{
		logger: logger,
		store:  store,
	}
}

type UploadResponsePayload struct {
	ImageRef string `json:"image_ref"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty image body")
		return
	}

	ref, err := h.store.Upload(data, name)
	if err != nil {
		// An upload failure never blocks a purchase; the image field
		// is optional.
		h.logger.Printf("Image upload failed for %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "image upload failed, purchase can proceed without one")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponsePayload{ImageRef: ref})
}
