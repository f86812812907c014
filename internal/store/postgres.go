package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"pixelwall/internal/models"
	"pixelwall/internal/price"
)

var (
	ErrDBTileNotFound    = errors.New("database: tile not found")
	ErrDBTileAlreadySold = errors.New("database: tile already sold")
	ErrDBTileOutOfRange  = errors.New("database: tile outside the configured sale range")
	ErrDBLockNotHeld     = errors.New("database: purchase lock not held by this session")
	ErrDBLockExpired     = errors.New("database: purchase lock has expired")
	ErrDBPriceMismatch   = errors.New("database: submitted price no longer matches the current price")
)

type DBStore struct {
	DB *sql.DB
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{DB: db}
}

func ConnectDB(driver, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func RunMigrations(db *sql.DB, migrationsDir string) error {
	if migrationsDir == "" {
		return fmt.Errorf("migrations directory not specified")
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, fileName := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationsDir, fileName))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", fileName, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
		}
	}
	return nil
}

func (s *DBStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// SeedTiles makes sure every tile id in [0, totalTiles) exists.
// Existing rows are left untouched, so reruns are safe.
func (s *DBStore) SeedTiles(ctx context.Context, totalTiles int) error {
	if totalTiles <= 0 {
		return fmt.Errorf("no tiles to seed")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO tiles (id, price, is_purchased)
        VALUES ($1, $2, FALSE)
        ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	startingPrice := price.FibonacciPrice(0)
	for i := 0; i < totalTiles; i++ {
		if _, err := stmt.Exec(i, startingPrice); err != nil {
			return fmt.Errorf("failed to insert tile %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTiles returns the tiles inside [rangeStart, rangeEnd] ordered by
// id, with owner names joined in from the celebrities table.
func (s *DBStore) LoadTiles(ctx context.Context, rangeStart, rangeEnd int) ([]models.Tile, error) {
	query := `
        SELECT t.id, COALESCE(c.name, ''), COALESCE(t.celebrity_id::text, ''), t.price,
               t.is_purchased, COALESCE(t.message, ''), COALESCE(t.purchase_seq, 0),
               t.purchased_at, t.created_at, t.updated_at
        FROM tiles t
        LEFT JOIN celebrities c ON c.id = t.celebrity_id
        WHERE t.id BETWEEN $1 AND $2
        ORDER BY t.id`

	rows, err := s.DB.QueryContext(ctx, query, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiles: %w", err)
	}
	defer rows.Close()

	var tiles []models.Tile
	for rows.Next() {
		var tile models.Tile
		var purchasedAt sql.NullTime
		if err := rows.Scan(
			&tile.ID,
			&tile.Owner,
			&tile.CelebrityID,
			&tile.Price,
			&tile.IsPurchased,
			&tile.Message,
			&tile.PurchaseSeq,
			&purchasedAt,
			&tile.CreatedAt,
			&tile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		if purchasedAt.Valid {
			tile.PurchasedAt = purchasedAt.Time
		}
		tiles = append(tiles, tile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tiles: %w", err)
	}
	return tiles, nil
}

func (s *DBStore) GetSaleCounter(ctx context.Context) (*models.SaleCounter, error) {
	counter := &models.SaleCounter{}
	err := s.DB.QueryRowContext(ctx, `
        SELECT total_purchased, updated_at FROM game_state WHERE id = 1`).
		Scan(&counter.TotalPurchased, &counter.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale counter: %w", err)
	}
	return counter, nil
}

func (s *DBStore) GetGameConfig(ctx context.Context) (*models.GameConfig, error) {
	cfg := &models.GameConfig{}
	var timeoutSeconds int
	err := s.DB.QueryRowContext(ctx, `
        SELECT total_tiles, grid_columns, tile_range_start, tile_range_end, lock_timeout_seconds
        FROM app_config WHERE id = 1`).
		Scan(&cfg.TotalTiles, &cfg.GridColumns, &cfg.TileRangeStart, &cfg.TileRangeEnd, &timeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to get game config: %w", err)
	}
	cfg.LockTimeout = time.Duration(timeoutSeconds) * time.Second
	return cfg, nil
}

func (s *DBStore) GetLock(ctx context.Context) (*models.PurchaseLock, error) {
	lock := &models.PurchaseLock{}
	err := s.DB.QueryRowContext(ctx, `
        SELECT locked, COALESCE(holder, ''), updated_at FROM purchase_lock WHERE id = 1`).
		Scan(&lock.Locked, &lock.Holder, &lock.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase lock: %w", err)
	}
	return lock, nil
}

// TryAcquireLock atomically claims the lock for holder. A held lock
// can still be claimed if it is older than timeout, so an abandoned
// checkout never blocks the next buyer past one timeout window.
func (s *DBStore) TryAcquireLock(ctx context.Context, holder string, timeout time.Duration) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
        UPDATE purchase_lock
        SET locked = TRUE, holder = $1, updated_at = NOW()
        WHERE id = 1
          AND (locked = FALSE OR updated_at < NOW() - ($2 * INTERVAL '1 second'))`,
		holder, timeout.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to acquire purchase lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read acquire result: %w", err)
	}
	return affected == 1, nil
}

// ReleaseLock frees the lock if holder still owns it. Releasing a lock
// that was already freed or taken over is a no-op.
func (s *DBStore) ReleaseLock(ctx context.Context, holder string) error {
	_, err := s.DB.ExecContext(ctx, `
        UPDATE purchase_lock
        SET locked = FALSE, holder = '', updated_at = NOW()
        WHERE id = 1 AND locked = TRUE AND holder = $1`, holder)
	if err != nil {
		return fmt.Errorf("failed to release purchase lock: %w", err)
	}
	return nil
}

// ForceReleaseIfStale frees the lock regardless of holder once its age
// exceeds timeout. Returns true if a stale lock was actually released.
func (s *DBStore) ForceReleaseIfStale(ctx context.Context, timeout time.Duration) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
        UPDATE purchase_lock
        SET locked = FALSE, holder = '', updated_at = NOW()
        WHERE id = 1 AND locked = TRUE
          AND updated_at < NOW() - ($1 * INTERVAL '1 second')`, timeout.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to force-release purchase lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read force-release result: %w", err)
	}
	return affected == 1, nil
}

// PurchaseParams carries everything the purchase transaction needs to
// verify and record a sale.
type PurchaseParams struct {
	TileID         int
	Holder         string
	Profile        models.BuyerProfile
	SubmittedPrice int64
	RangeStart     int
	RangeEnd       int
	LockTimeout    time.Duration
}

// ExecutePurchaseTransaction is the single authoritative write. Tile,
// lock and counter rows are taken FOR UPDATE so the unsold check, the
// price derivation and the ownership write are one atomic step; the
// advisory lock can be bypassed by a misbehaving client but this
// transaction cannot.
func (s *DBStore) ExecutePurchaseTransaction(ctx context.Context, p PurchaseParams) (*models.Tile, string, error) {
	if p.TileID < p.RangeStart || p.TileID > p.RangeEnd {
		return nil, "", ErrDBTileOutOfRange
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var tile models.Tile
	err = tx.QueryRow(`
        SELECT id, price, is_purchased, created_at
        FROM tiles WHERE id = $1 FOR UPDATE`, p.TileID).
		Scan(&tile.ID, &tile.Price, &tile.IsPurchased, &tile.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrDBTileNotFound
		}
		return nil, "", fmt.Errorf("failed to lock tile row: %w", err)
	}
	if tile.IsPurchased {
		return nil, "", ErrDBTileAlreadySold
	}

	var lock models.PurchaseLock
	err = tx.QueryRow(`
        SELECT locked, COALESCE(holder, ''), updated_at
        FROM purchase_lock WHERE id = 1 FOR UPDATE`).
		Scan(&lock.Locked, &lock.Holder, &lock.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to lock purchase_lock row: %w", err)
	}
	if !lock.Locked || lock.Holder != p.Holder {
		return nil, "", ErrDBLockNotHeld
	}
	if lock.IsStale(time.Now(), p.LockTimeout) {
		return nil, "", ErrDBLockExpired
	}

	var totalPurchased int
	err = tx.QueryRow(`
        SELECT total_purchased FROM game_state WHERE id = 1 FOR UPDATE`).
		Scan(&totalPurchased)
	if err != nil {
		return nil, "", fmt.Errorf("failed to lock game_state row: %w", err)
	}

	currentPrice := price.CurrentPrice(totalPurchased, p.RangeStart)
	if p.SubmittedPrice != currentPrice {
		return nil, "", ErrDBPriceMismatch
	}

	celebrityID := uuid.NewString()
	_, err = tx.Exec(`
        INSERT INTO celebrities (id, name, email, image_ref, quote, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		celebrityID, p.Profile.Name, p.Profile.Email, p.Profile.ImageRef,
		p.Profile.Quote, p.Profile.Description)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create celebrity record: %w", err)
	}

	purchaseSeq := totalPurchased + 1
	_, err = tx.Exec(`
        UPDATE tiles
        SET celebrity_id = $1, price = $2, is_purchased = TRUE, message = $3,
            purchase_seq = $4, purchased_at = NOW(), updated_at = NOW()
        WHERE id = $5`,
		celebrityID, currentPrice, p.Profile.Message, purchaseSeq, p.TileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to assign tile ownership: %w", err)
	}

	_, err = tx.Exec(`
        UPDATE game_state SET total_purchased = total_purchased + 1, updated_at = NOW()
        WHERE id = 1`)
	if err != nil {
		return nil, "", fmt.Errorf("failed to advance sale counter: %w", err)
	}

	_, err = tx.Exec(`
        UPDATE purchase_lock SET locked = FALSE, holder = '', updated_at = NOW()
        WHERE id = 1`)
	if err != nil {
		return nil, "", fmt.Errorf("failed to release purchase lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	tile.Owner = p.Profile.Name
	tile.CelebrityID = celebrityID
	tile.Price = currentPrice
	tile.IsPurchased = true
	tile.Message = p.Profile.Message
	tile.PurchaseSeq = purchaseSeq
	tile.PurchasedAt = time.Now()
	return &tile, celebrityID, nil
}
