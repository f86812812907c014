package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pixelwall/internal/models"
	"pixelwall/internal/price"
	"pixelwall/internal/store"
)

var errStoreDown = errors.New("store unreachable")

// fakeStore is an in-memory stand-in for the Postgres and Redis
// stores. The purchase path holds one mutex so its check-then-write
// is atomic, same as the row-locked transaction it imitates.
type fakeStore struct {
	mu sync.Mutex

	tiles   map[int]models.Tile
	counter int
	lock    models.PurchaseLock

	cacheToken string
	published  []string

	failReads    bool
	failAcquire  bool
	failCacheGet bool
}

func newFakeStore(totalTiles int) *fakeStore {
	f := &fakeStore{tiles: make(map[int]models.Tile)}
	now := time.Now()
	for i := 0; i < totalTiles; i++ {
		f.tiles[i] = models.Tile{ID: i, Price: 1, CreatedAt: now, UpdatedAt: now}
	}
	f.lock.UpdatedAt = now
	return f
}

func (f *fakeStore) LoadTiles(ctx context.Context, rangeStart, rangeEnd int) ([]models.Tile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	var tiles []models.Tile
	for id := rangeStart; id <= rangeEnd; id++ {
		if tile, ok := f.tiles[id]; ok {
			tiles = append(tiles, tile)
		}
	}
	return tiles, nil
}

func (f *fakeStore) GetSaleCounter(ctx context.Context) (*models.SaleCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	return &models.SaleCounter{TotalPurchased: f.counter, UpdatedAt: time.Now()}, nil
}

func (f *fakeStore) GetLock(ctx context.Context) (*models.PurchaseLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	lock := f.lock
	return &lock, nil
}

func (f *fakeStore) TryAcquireLock(ctx context.Context, holder string, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAcquire {
		return false, errStoreDown
	}
	now := time.Now()
	if f.lock.Locked && !f.lock.IsStale(now, timeout) {
		return false, nil
	}
	f.lock = models.PurchaseLock{Locked: true, Holder: holder, UpdatedAt: now}
	return true, nil
}

func (f *fakeStore) ReleaseLock(ctx context.Context, holder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lock.Locked && f.lock.Holder == holder {
		f.lock = models.PurchaseLock{UpdatedAt: time.Now()}
	}
	return nil
}

func (f *fakeStore) ForceReleaseIfStale(ctx context.Context, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.lock.IsStale(time.Now(), timeout) {
		return false, nil
	}
	f.lock = models.PurchaseLock{UpdatedAt: time.Now()}
	return true, nil
}

func (f *fakeStore) ExecutePurchaseTransaction(ctx context.Context, p store.PurchaseParams) (*models.Tile, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.TileID < p.RangeStart || p.TileID > p.RangeEnd {
		return nil, "", store.ErrDBTileOutOfRange
	}
	tile, ok := f.tiles[p.TileID]
	if !ok {
		return nil, "", store.ErrDBTileNotFound
	}
	if tile.IsPurchased {
		return nil, "", store.ErrDBTileAlreadySold
	}
	if !f.lock.Locked || f.lock.Holder != p.Holder {
		return nil, "", store.ErrDBLockNotHeld
	}
	if f.lock.IsStale(time.Now(), p.LockTimeout) {
		return nil, "", store.ErrDBLockExpired
	}
	currentPrice := price.CurrentPrice(f.counter, p.RangeStart)
	if p.SubmittedPrice != currentPrice {
		return nil, "", store.ErrDBPriceMismatch
	}

	f.counter++
	celebrityID := fmt.Sprintf("celebrity-%d", f.counter)
	tile.Owner = p.Profile.Name
	tile.CelebrityID = celebrityID
	tile.Price = currentPrice
	tile.IsPurchased = true
	tile.Message = p.Profile.Message
	tile.PurchaseSeq = f.counter
	tile.PurchasedAt = time.Now()
	f.tiles[p.TileID] = tile
	f.lock = models.PurchaseLock{UpdatedAt: time.Now()}

	result := tile
	return &result, celebrityID, nil
}

func (f *fakeStore) StoreLockToken(ctx context.Context, holder string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheToken = holder
	return nil
}

func (f *fakeStore) GetLockToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCacheGet {
		return "", errStoreDown
	}
	return f.cacheToken, nil
}

func (f *fakeStore) DeleteLockToken(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheToken = ""
	return nil
}

func (f *fakeStore) PublishChange(ctx context.Context, resource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, resource)
	return nil
}

func (f *fakeStore) publishedResources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	copy(out, f.published)
	return out
}

func (f *fakeStore) setLock(locked bool, holder string, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lock = models.PurchaseLock{Locked: locked, Holder: holder, UpdatedAt: updatedAt}
}

func (f *fakeStore) currentLock() models.PurchaseLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lock
}

type fakeConfigStore struct {
	cfg *models.GameConfig
	err error
}

func (f *fakeConfigStore) GetGameConfig(ctx context.Context) (*models.GameConfig, error) {
	return f.cfg, f.err
}
