package service

import (
	"context"
	"log"

	"pixelwall/internal/config"
	"pixelwall/internal/models"
)

// GameConfigStore reads the app_config row.
type GameConfigStore interface {
	GetGameConfig(ctx context.Context) (*models.GameConfig, error)
}

// ConfigProvider loads the game tunables once at startup. The loaded
// config is treated as immutable for the session; a config change on
// the feed takes effect on the next reload.
type ConfigProvider struct {
	store  GameConfigStore
	logger *log.Logger
}

func NewConfigProvider(logger *log.Logger, store GameConfigStore) *ConfigProvider {
	return &ConfigProvider{store: store, logger: logger}
}

// Load returns the stored game config, falling back to the hard-coded
// defaults when the row is unreadable or nonsensical.
func (p *ConfigProvider) Load(ctx context.Context) *models.GameConfig {
	cfg, err := p.store.GetGameConfig(ctx)
	if err != nil {
		p.logger.Printf("Failed to load game config, using defaults: %v", err)
		return config.DefaultGameConfig()
	}

	if cfg.TotalTiles <= 0 || cfg.GridColumns <= 0 ||
		cfg.TileRangeStart < 0 || cfg.TileRangeEnd < cfg.TileRangeStart ||
		cfg.TileRangeEnd >= cfg.TotalTiles || cfg.LockTimeout <= 0 {
		p.logger.Printf("Stored game config is invalid (%+v), using defaults", cfg)
		return config.DefaultGameConfig()
	}

	return cfg
}
