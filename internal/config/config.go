package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"pixelwall/internal/models"
)

// Hard-coded game defaults, used whenever the app_config row cannot
// be read. A 7x7 grid of 49 tiles, full range exposed, 10 minute
// checkout lock.
const (
	DefaultTotalTiles     = 49
	DefaultGridColumns    = 7
	DefaultTileRangeStart = 0
	DefaultTileRangeEnd   = 48
	DefaultLockTimeout    = 10 * time.Minute
)

type Config struct {
	ServerPort int

	DBDriver         string
	DBDataSourceName string
	MigrationsDir    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AssetsDir     string
	AssetsBaseURL string

	SupportContact string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: could not load .env file, relying on environment")
	}

	config := &Config{}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.ServerPort = p
		}
	}
	if config.ServerPort == 0 {
		config.ServerPort = 8046
	}

	config.DBDriver = "postgres"

	dbHost := getEnvOrDefault("PIXELWALL_DB_HOST", "localhost")
	dbPort := getEnvOrDefault("PIXELWALL_DB_PORT", "5432")
	dbName := getEnvOrDefault("PIXELWALL_DB_DATABASE", "pixelwall")
	dbUser := getEnvOrDefault("PIXELWALL_DB_USERNAME", "root")
	dbPassword := getEnvOrDefault("PIXELWALL_DB_PASSWORD", "1234")

	config.DBDataSourceName = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPassword, dbHost, dbPort, dbName)
	config.MigrationsDir = getEnvOrDefault("MIGRATIONS_DIR", "migrations")

	redisHost := getEnvOrDefault("PIXELWALL_REDIS_HOST", "localhost")
	redisPort := getEnvOrDefault("PIXELWALL_REDIS_PORT", "6379")
	config.RedisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	config.RedisPassword = os.Getenv("PIXELWALL_REDIS_PASSWORD")
	if db := os.Getenv("PIXELWALL_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			config.RedisDB = d
		}
	}

	config.AssetsDir = getEnvOrDefault("PIXELWALL_ASSETS_DIR", "assets")
	config.AssetsBaseURL = getEnvOrDefault("PIXELWALL_ASSETS_BASE_URL", "/assets")

	config.SupportContact = getEnvOrDefault("PIXELWALL_SUPPORT_CONTACT", "support@pixelwall.example")

	return config, nil
}

// DefaultGameConfig is the fallback when the app_config row is
// unreadable at startup.
func DefaultGameConfig() *models.GameConfig {
	return &models.GameConfig{
		TotalTiles:     DefaultTotalTiles,
		GridColumns:    DefaultGridColumns,
		TileRangeStart: DefaultTileRangeStart,
		TileRangeEnd:   DefaultTileRangeEnd,
		LockTimeout:    DefaultLockTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
