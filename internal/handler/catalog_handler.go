package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"pixelwall/internal/models"
	"pixelwall/internal/service"
)

const progressionSteps = 8

type CatalogHandler struct {
	logger      *log.Logger
	catalog     *service.CatalogService
	coordinator *service.Coordinator
}

func NewCatalogHandler(logger *log.Logger, catalog *service.CatalogService, coordinator *service.Coordinator) *CatalogHandler {
	return &CatalogHandler{
		logger:      logger,
		catalog:     catalog,
		coordinator: coordinator,
	}
}

type tileView struct {
	models.Tile
	OwnershipWeight float64 `json:"ownership_weight"`
}

type CatalogResponsePayload struct {
	Tiles          []tileView                `json:"tiles"`
	TotalPurchased int                       `json:"total_purchased"`
	CurrentPrice   int64                     `json:"current_price"`
	NextPrice      int64                     `json:"next_price"`
	Degraded       bool                      `json:"degraded"`
	Leaderboard    []models.LeaderboardEntry `json:"leaderboard"`
	Progression    []models.PriceStep        `json:"progression"`
	Lock           *lockView                 `json:"lock,omitempty"`
}

type lockView struct {
	Locked           bool    `json:"locked"`
	RemainingSeconds float64 `json:"remaining_seconds,omitempty"`
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := h.catalog.Load(r.Context())
	if err != nil {
		if !errors.Is(err, service.ErrCatalogUnavailable) {
			h.logger.Printf("Unexpected catalog error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load catalog")
			return
		}
		// Degraded mode: serve a synthesized local catalog so the
		// client stays usable while the store is unreachable.
		snapshot = h.catalog.Fallback()
	}

	resp := CatalogResponsePayload{
		Tiles:          make([]tileView, 0, len(snapshot.Tiles)),
		TotalPurchased: snapshot.TotalPurchased,
		CurrentPrice:   snapshot.CurrentPrice,
		NextPrice:      snapshot.NextPrice,
		Degraded:       snapshot.Degraded,
		Leaderboard:    service.Leaderboard(snapshot.Tiles),
		Progression:    h.catalog.Progression(snapshot, progressionSteps),
	}
	for _, tile := range snapshot.Tiles {
		resp.Tiles = append(resp.Tiles, tileView{
			Tile:            tile,
			OwnershipWeight: h.catalog.OwnershipWeight(tile.Price),
		})
	}

	if !snapshot.Degraded {
		if status, err := h.coordinator.CheckLock(r.Context()); err != nil {
			h.logger.Printf("Lock status read failed while building catalog: %v", err)
		} else {
			resp.Lock = &lockView{
				Locked:           status.Locked,
				RemainingSeconds: status.Remaining.Round(time.Second).Seconds(),
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
