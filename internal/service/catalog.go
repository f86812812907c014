package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"pixelwall/internal/models"
	"pixelwall/internal/price"
)

// CatalogStore is the read side of the backing store.
type CatalogStore interface {
	LoadTiles(ctx context.Context, rangeStart, rangeEnd int) ([]models.Tile, error)
	GetSaleCounter(ctx context.Context) (*models.SaleCounter, error)
}

// CatalogSnapshot is one consistent view of the tile wall. Display
// prices for unsold tiles are recomputed from the counter at load
// time; sold tiles keep the historical price they were bought at.
type CatalogSnapshot struct {
	Tiles          []models.Tile `json:"tiles"`
	TotalPurchased int           `json:"total_purchased"`
	CurrentPrice   int64         `json:"current_price"`
	NextPrice      int64         `json:"next_price"`
	Degraded       bool          `json:"degraded"`
}

// CatalogService is the source of truth for tile records. Everything
// here is read-only; the only writer is the purchase transaction.
type CatalogService struct {
	store   CatalogStore
	gameCfg *models.GameConfig
	logger  *log.Logger
}

func NewCatalogService(logger *log.Logger, store CatalogStore, gameCfg *models.GameConfig) *CatalogService {
	return &CatalogService{
		store:   store,
		gameCfg: gameCfg,
		logger:  logger,
	}
}

// Load fetches the range-restricted catalog and counter. On a store
// failure it returns ErrCatalogUnavailable; callers should fall back
// to Fallback() so the client stays usable offline.
func (s *CatalogService) Load(ctx context.Context) (*CatalogSnapshot, error) {
	tiles, err := s.store.LoadTiles(ctx, s.gameCfg.TileRangeStart, s.gameCfg.TileRangeEnd)
	if err != nil {
		s.logger.Printf("Catalog load failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	counter, err := s.store.GetSaleCounter(ctx)
	if err != nil {
		s.logger.Printf("Sale counter load failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	current := price.CurrentPrice(counter.TotalPurchased, s.gameCfg.TileRangeStart)
	for i := range tiles {
		if !tiles[i].IsPurchased {
			tiles[i].Price = current
		}
	}

	return &CatalogSnapshot{
		Tiles:          tiles,
		TotalPurchased: counter.TotalPurchased,
		CurrentPrice:   current,
		NextPrice:      price.CurrentPrice(counter.TotalPurchased+1, s.gameCfg.TileRangeStart),
	}, nil
}

// Fallback synthesizes an empty catalog for degraded offline mode:
// every tile in range unsold at the starting price.
func (s *CatalogService) Fallback() *CatalogSnapshot {
	tiles := make([]models.Tile, 0, s.gameCfg.RangeSize())
	starting := price.FibonacciPrice(0)
	for id := s.gameCfg.TileRangeStart; id <= s.gameCfg.TileRangeEnd; id++ {
		tiles = append(tiles, models.Tile{ID: id, Price: starting})
	}
	return &CatalogSnapshot{
		Tiles:        tiles,
		CurrentPrice: price.CurrentPrice(0, s.gameCfg.TileRangeStart),
		NextPrice:    price.CurrentPrice(1, s.gameCfg.TileRangeStart),
		Degraded:     true,
	}
}

// Progression previews the next k price steps from the snapshot.
func (s *CatalogService) Progression(snapshot *CatalogSnapshot, k int) []models.PriceStep {
	steps := make([]models.PriceStep, 0, k)
	for i, p := range price.Progression(snapshot.TotalPurchased, s.gameCfg.TileRangeStart, k) {
		steps = append(steps, models.PriceStep{
			AfterPurchases: snapshot.TotalPurchased + i,
			Price:          p,
		})
	}
	return steps
}

// OwnershipWeight is the display-only share of total catalog value a
// tile price represents.
func (s *CatalogService) OwnershipWeight(tilePrice int64) float64 {
	return price.OwnershipWeight(tilePrice, s.gameCfg.TileRangeStart, s.gameCfg.TileRangeEnd)
}

// Leaderboard ranks owners by tiles held, descending. Ties go to the
// owner whose first purchase came earlier.
func Leaderboard(tiles []models.Tile) []models.LeaderboardEntry {
	counts := make(map[string]int)
	firstSeq := make(map[string]int)
	for _, tile := range tiles {
		if !tile.IsPurchased || tile.Owner == "" {
			continue
		}
		counts[tile.Owner]++
		if seq, ok := firstSeq[tile.Owner]; !ok || tile.PurchaseSeq < seq {
			firstSeq[tile.Owner] = tile.PurchaseSeq
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(counts))
	for owner, count := range counts {
		entries = append(entries, models.LeaderboardEntry{Owner: owner, TileCount: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TileCount != entries[j].TileCount {
			return entries[i].TileCount > entries[j].TileCount
		}
		return firstSeq[entries[i].Owner] < firstSeq[entries[j].Owner]
	})
	return entries
}
