package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pixelwall/internal/models"
)

func TestCatalogLoadRecomputesDisplayPrices(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore(5)
	cfg := testGameConfig()
	catalog := NewCatalogService(testLogger(), f, cfg)

	// Two tiles sold at historical prices 1 and 1.
	for _, id := range []int{0, 1} {
		tile := f.tiles[id]
		tile.IsPurchased = true
		tile.Owner = "Ada"
		tile.Price = 1
		tile.PurchaseSeq = id + 1
		f.tiles[id] = tile
	}
	f.counter = 2

	snapshot, err := catalog.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.TotalPurchased != 2 {
		t.Fatalf("counter = %d, want 2", snapshot.TotalPurchased)
	}
	// fib(2) = 2 for unsold tiles, sold tiles keep their price.
	if snapshot.CurrentPrice != 2 || snapshot.NextPrice != 3 {
		t.Fatalf("current/next = %d/%d, want 2/3", snapshot.CurrentPrice, snapshot.NextPrice)
	}
	for _, tile := range snapshot.Tiles {
		if tile.IsPurchased && tile.Price != 1 {
			t.Errorf("sold tile %d price recomputed to %d", tile.ID, tile.Price)
		}
		if !tile.IsPurchased && tile.Price != 2 {
			t.Errorf("unsold tile %d shows %d, want 2", tile.ID, tile.Price)
		}
	}
}

func TestCatalogLoadRespectsRange(t *testing.T) {
	f := newFakeStore(10)
	cfg := &models.GameConfig{
		TotalTiles:     10,
		GridColumns:    5,
		TileRangeStart: 3,
		TileRangeEnd:   6,
		LockTimeout:    time.Minute,
	}
	catalog := NewCatalogService(testLogger(), f, cfg)

	snapshot, err := catalog.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Tiles) != 4 {
		t.Fatalf("got %d tiles, want 4", len(snapshot.Tiles))
	}
	for _, tile := range snapshot.Tiles {
		if tile.ID < 3 || tile.ID > 6 {
			t.Errorf("tile %d outside range [3, 6]", tile.ID)
		}
	}
	// Price for the first sale in a range starting at 3 is fib(3).
	if snapshot.CurrentPrice != 3 {
		t.Fatalf("current price = %d, want 3", snapshot.CurrentPrice)
	}
}

func TestCatalogLoadUnavailable(t *testing.T) {
	f := newFakeStore(5)
	f.failReads = true
	cfg := testGameConfig()
	catalog := NewCatalogService(testLogger(), f, cfg)

	_, err := catalog.Load(context.Background())
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("err = %v, want ErrCatalogUnavailable", err)
	}

	fallback := catalog.Fallback()
	if !fallback.Degraded {
		t.Fatal("fallback must be flagged degraded")
	}
	if len(fallback.Tiles) != cfg.RangeSize() {
		t.Fatalf("fallback has %d tiles, want %d", len(fallback.Tiles), cfg.RangeSize())
	}
	for _, tile := range fallback.Tiles {
		if tile.IsPurchased || tile.Owner != "" || tile.Price != 1 {
			t.Fatalf("fallback tile not pristine: %+v", tile)
		}
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	tiles := []models.Tile{
		{ID: 0, IsPurchased: true, Owner: "Bob", PurchaseSeq: 2},
		{ID: 1, IsPurchased: true, Owner: "Ada", PurchaseSeq: 1},
		{ID: 2, IsPurchased: true, Owner: "Bob", PurchaseSeq: 4},
		{ID: 3, IsPurchased: true, Owner: "Cleo", PurchaseSeq: 3},
		{ID: 4, IsPurchased: true, Owner: "Cleo", PurchaseSeq: 5},
		{ID: 5},
	}

	board := Leaderboard(tiles)
	if len(board) != 3 {
		t.Fatalf("got %d entries, want 3", len(board))
	}
	// Bob and Cleo both hold 2; Bob's first purchase (seq 2) beats
	// Cleo's (seq 3). Ada holds 1 and comes last.
	wantOrder := []string{"Bob", "Cleo", "Ada"}
	for i, want := range wantOrder {
		if board[i].Owner != want {
			t.Fatalf("rank %d = %q, want %q (board %+v)", i, board[i].Owner, want, board)
		}
	}
	if board[0].TileCount != 2 || board[2].TileCount != 1 {
		t.Fatalf("wrong counts: %+v", board)
	}
}

func TestProgressionPreview(t *testing.T) {
	f := newFakeStore(5)
	cfg := testGameConfig()
	catalog := NewCatalogService(testLogger(), f, cfg)

	steps := catalog.Progression(&CatalogSnapshot{TotalPurchased: 2}, 3)
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	want := []models.PriceStep{
		{AfterPurchases: 2, Price: 2},
		{AfterPurchases: 3, Price: 3},
		{AfterPurchases: 4, Price: 5},
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestOwnershipWeight(t *testing.T) {
	f := newFakeStore(5)
	catalog := NewCatalogService(testLogger(), f, testGameConfig())

	// Range 0..4 totals 12; a price of 3 is a quarter of the wall.
	got := catalog.OwnershipWeight(3)
	if got < 24.99 || got > 25.01 {
		t.Fatalf("weight = %f, want 25", got)
	}
}
