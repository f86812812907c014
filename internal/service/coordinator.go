package service

import (
	"context"
	cRand "crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"pixelwall/internal/models"
	"pixelwall/internal/store"
)

// LockStore is the authoritative advisory-lock record.
type LockStore interface {
	GetLock(ctx context.Context) (*models.PurchaseLock, error)
	TryAcquireLock(ctx context.Context, holder string, timeout time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, holder string) error
	ForceReleaseIfStale(ctx context.Context, timeout time.Duration) (bool, error)
}

// PurchaseStore runs the atomic purchase transaction.
type PurchaseStore interface {
	ExecutePurchaseTransaction(ctx context.Context, p store.PurchaseParams) (*models.Tile, string, error)
}

// LockCache mirrors the lock holder token for fast pre-checks. Misses
// and failures here are harmless; the LockStore row is authoritative.
type LockCache interface {
	StoreLockToken(ctx context.Context, holder string, ttl time.Duration) error
	GetLockToken(ctx context.Context) (string, error)
	DeleteLockToken(ctx context.Context) error
}

// ChangePublisher broadcasts changed-resource names to the change feed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, resource string) error
}

// Resource names carried on the change feed.
const (
	ResourceTiles     = "tiles"
	ResourceGameState = "game_state"
	ResourceLock      = "purchase_lock"
	ResourceConfig    = "app_config"
)

// LockGrant is handed to the session that won the checkout lock. The
// token must accompany release and commit calls.
type LockGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LockStatus is the presentation view of the lock.
type LockStatus struct {
	Locked    bool          `json:"locked"`
	Remaining time.Duration `json:"remaining"`
}

// CommitRequest is the authoritative-write input, assembled after the
// external payment processor has approved the charge.
type CommitRequest struct {
	TileID        int
	Token         string
	Profile       models.BuyerProfile
	Price         int64
	TransactionID string
}

// PurchaseReceipt is returned on a successful commit.
type PurchaseReceipt struct {
	Tile          *models.Tile `json:"tile"`
	CelebrityID   string       `json:"celebrity_id"`
	TransactionID string       `json:"transaction_id"`
}

// Coordinator owns the single-writer purchase flow: the global
// advisory checkout lock, stale-lock recovery and the commit. The
// whole flow is serialized system-wide, not per tile, so two buyers
// can never race the counter-derived price.
type Coordinator struct {
	locks     LockStore
	purchases PurchaseStore
	cache     LockCache
	publisher ChangePublisher
	gameCfg   *models.GameConfig
	logger    *log.Logger
}

func NewCoordinator(logger *log.Logger, locks LockStore, purchases PurchaseStore,
	cache LockCache, publisher ChangePublisher, gameCfg *models.GameConfig) *Coordinator {
	return &Coordinator{
		locks:     locks,
		purchases: purchases,
		cache:     cache,
		publisher: publisher,
		gameCfg:   gameCfg,
		logger:    logger,
	}
}

func generateHolderToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := cRand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CheckLock reads the authoritative lock row. A stale lock is reported
// as free; the next sweep or acquire will clean it up.
func (c *Coordinator) CheckLock(ctx context.Context) (*LockStatus, error) {
	lock, err := c.locks.GetLock(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !lock.Locked || lock.IsStale(now, c.gameCfg.LockTimeout) {
		return &LockStatus{Locked: false}, nil
	}
	return &LockStatus{
		Locked:    true,
		Remaining: c.gameCfg.LockTimeout - lock.Age(now),
	}, nil
}

// AcquireLock claims the global checkout lock and returns a grant
// holding the session token. ErrLockUnavailable means another buyer is
// mid-checkout; ErrLockAcquireFailed means the write itself failed and
// the caller must not proceed to payment.
func (c *Coordinator) AcquireLock(ctx context.Context) (*LockGrant, error) {
	// Fast pre-check against the mirrored token. A cache failure only
	// costs us the shortcut.
	if token, err := c.cache.GetLockToken(ctx); err != nil {
		c.logger.Printf("Warning: lock cache read failed, falling back to database: %v", err)
	} else if token != "" {
		return nil, ErrLockUnavailable
	}

	holder, err := generateHolderToken()
	if err != nil {
		c.logger.Printf("Failed to generate holder token: %v", err)
		return nil, ErrLockAcquireFailed
	}

	acquired, err := c.locks.TryAcquireLock(ctx, holder, c.gameCfg.LockTimeout)
	if err != nil {
		c.logger.Printf("Lock acquire write failed: %v", err)
		return nil, ErrLockAcquireFailed
	}
	if !acquired {
		return nil, ErrLockUnavailable
	}

	if err := c.cache.StoreLockToken(ctx, holder, c.gameCfg.LockTimeout); err != nil {
		c.logger.Printf("Warning: failed to mirror lock token: %v", err)
	}
	c.publish(ctx, ResourceLock)

	return &LockGrant{
		Token:     holder,
		ExpiresAt: time.Now().Add(c.gameCfg.LockTimeout),
	}, nil
}

// ReleaseLock frees the lock held under token. It must be called on
// every exit path from the checkout flow and is safe to call when the
// lock was already freed or taken over.
func (c *Coordinator) ReleaseLock(ctx context.Context, token string) error {
	if err := c.locks.ReleaseLock(ctx, token); err != nil {
		return err
	}
	if err := c.cache.DeleteLockToken(ctx); err != nil {
		c.logger.Printf("Warning: failed to drop mirrored lock token: %v", err)
	}
	c.publish(ctx, ResourceLock)
	return nil
}

// ReleaseIfStale force-releases a lock older than the timeout,
// whoever holds it. Both the periodic sweeper and lock-change
// notifications call it; it is idempotent so either trigger may fire
// first or both may fire.
func (c *Coordinator) ReleaseIfStale(ctx context.Context) (bool, error) {
	released, err := c.locks.ForceReleaseIfStale(ctx, c.gameCfg.LockTimeout)
	if err != nil {
		return false, err
	}
	if released {
		c.logger.Printf("Stale purchase lock force-released after %s timeout", c.gameCfg.LockTimeout)
		if err := c.cache.DeleteLockToken(ctx); err != nil {
			c.logger.Printf("Warning: failed to drop mirrored lock token: %v", err)
		}
		c.publish(ctx, ResourceLock)
	}
	return released, nil
}

// CommitPurchase is the single authoritative write. Payment has
// already been captured by the external processor, so every rejection
// carries the transaction id and must be surfaced to the buyer with a
// support path, never swallowed.
func (c *Coordinator) CommitPurchase(ctx context.Context, req CommitRequest) (*PurchaseReceipt, error) {
	reject := func(reason string) error {
		return &PurchaseRejectedError{
			Reason:        reason,
			TileID:        req.TileID,
			TransactionID: req.TransactionID,
		}
	}

	if req.Profile.Name == "" {
		return nil, reject("buyer name is required")
	}

	tile, celebrityID, err := c.purchases.ExecutePurchaseTransaction(ctx, store.PurchaseParams{
		TileID:         req.TileID,
		Holder:         req.Token,
		Profile:        req.Profile,
		SubmittedPrice: req.Price,
		RangeStart:     c.gameCfg.TileRangeStart,
		RangeEnd:       c.gameCfg.TileRangeEnd,
		LockTimeout:    c.gameCfg.LockTimeout,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDBTileNotFound):
			return nil, reject("tile does not exist")
		case errors.Is(err, store.ErrDBTileOutOfRange):
			return nil, reject("tile is outside the sale range")
		case errors.Is(err, store.ErrDBTileAlreadySold):
			return nil, reject("tile has already been sold")
		case errors.Is(err, store.ErrDBLockNotHeld):
			return nil, reject("checkout lock is not held by this session")
		case errors.Is(err, store.ErrDBLockExpired):
			return nil, reject("checkout lock expired before commit")
		case errors.Is(err, store.ErrDBPriceMismatch):
			return nil, reject("tile price changed before commit")
		}
		c.logger.Printf("Purchase transaction failed for tile %d (payment %s): %v",
			req.TileID, req.TransactionID, err)
		return nil, ErrPurchaseFailed
	}

	if err := c.cache.DeleteLockToken(ctx); err != nil {
		c.logger.Printf("Warning: failed to drop mirrored lock token after commit: %v", err)
	}
	c.publish(ctx, ResourceTiles)
	c.publish(ctx, ResourceGameState)
	c.publish(ctx, ResourceLock)

	c.logger.Printf("Tile %d sold to %q for %d (seq %d, payment %s)",
		tile.ID, req.Profile.Name, tile.Price, tile.PurchaseSeq, req.TransactionID)

	return &PurchaseReceipt{
		Tile:          tile,
		CelebrityID:   celebrityID,
		TransactionID: req.TransactionID,
	}, nil
}

func (c *Coordinator) publish(ctx context.Context, resource string) {
	if err := c.publisher.PublishChange(ctx, resource); err != nil {
		c.logger.Printf("Warning: failed to publish %s change: %v", resource, err)
	}
}
