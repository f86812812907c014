package models

import "time"

// Tile is one sellable unit in the numbered pool. A tile is written
// exactly once, by the purchase transaction; PurchasePrice is the
// historical price paid and is never recomputed.
type Tile struct {
	ID          int       `json:"id"`
	Owner       string    `json:"owner,omitempty"`
	CelebrityID string    `json:"celebrity_id,omitempty"`
	Price       int64     `json:"price"`
	IsPurchased bool      `json:"is_purchased"`
	Message     string    `json:"message,omitempty"`
	PurchaseSeq int       `json:"purchase_seq,omitempty"`
	PurchasedAt time.Time `json:"purchased_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Celebrity is the buyer profile attached to a purchased tile.
// Name is required; everything else is optional.
type Celebrity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	Quote       string    `json:"quote,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BuyerProfile is the purchase-form payload used to create a Celebrity.
type BuyerProfile struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	Quote       string `json:"quote,omitempty"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

// SaleCounter is the single game_state row: count of tiles sold so
// far within the active range. All pricing derives from it.
type SaleCounter struct {
	TotalPurchased int       `json:"total_purchased"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PurchaseLock is the singleton advisory checkout lock. Holder is a
// random token handed to the acquiring session; a lock older than the
// configured timeout is stale and eligible for forced release by any
// observer.
type PurchaseLock struct {
	Locked    bool      `json:"locked"`
	Holder    string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Age reports how long the lock has been in its current state.
func (l *PurchaseLock) Age(now time.Time) time.Duration {
	return now.Sub(l.UpdatedAt)
}

// IsStale reports whether a held lock has outlived the timeout.
func (l *PurchaseLock) IsStale(now time.Time, timeout time.Duration) bool {
	return l.Locked && l.Age(now) > timeout
}

// GameConfig is the read-mostly tunable set, loaded once per session.
type GameConfig struct {
	TotalTiles     int           `json:"total_tiles"`
	GridColumns    int           `json:"grid_columns"`
	TileRangeStart int           `json:"tile_range_start"`
	TileRangeEnd   int           `json:"tile_range_end"`
	LockTimeout    time.Duration `json:"lock_timeout"`
}

// RangeSize is the number of tiles exposed for sale.
func (c *GameConfig) RangeSize() int {
	return c.TileRangeEnd - c.TileRangeStart + 1
}

// InRange reports whether a tile id falls inside the sale window.
func (c *GameConfig) InRange(tileID int) bool {
	return tileID >= c.TileRangeStart && tileID <= c.TileRangeEnd
}

// LeaderboardEntry is one ranked owner on the leaderboard.
type LeaderboardEntry struct {
	Owner     string `json:"owner"`
	TileCount int    `json:"tile_count"`
}

// PriceStep is one entry of the price-progression preview.
type PriceStep struct {
	AfterPurchases int   `json:"after_purchases"`
	Price          int64 `json:"price"`
}
