package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"pixelwall/internal/assets"
	"pixelwall/internal/config"
	"pixelwall/internal/handler"
	"pixelwall/internal/models"
	"pixelwall/internal/notify"
	"pixelwall/internal/payment"
	"pixelwall/internal/service"
	"pixelwall/internal/store"
)

type application struct {
	config      *config.Config
	gameCfg     *models.GameConfig
	logger      *log.Logger
	db          *sql.DB
	redisClient *redis.Client
	coordinator *service.Coordinator
	notifier    *notify.Notifier
	server      *http.Server
	shutdown    context.CancelFunc
	sweeperDone chan struct{}
}

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.ConnectDB(cfg.DBDriver, cfg.DBDataSourceName)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("Error closing database: %v", err)
		}
	}()

	if err := store.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Printf("Error closing Redis client: %v", err)
		}
	}()

	dbStore := store.NewDBStore(db)
	redisStore := store.NewRedisStore(redisClient)

	// Game config is immutable for the session; a change on the feed
	// takes effect on the next restart.
	gameCfg := service.NewConfigProvider(logger, dbStore).Load(context.Background())
	logger.Printf("Game config: %d tiles, range [%d, %d], lock timeout %s",
		gameCfg.TotalTiles, gameCfg.TileRangeStart, gameCfg.TileRangeEnd, gameCfg.LockTimeout)

	if err := dbStore.SeedTiles(context.Background(), gameCfg.TotalTiles); err != nil {
		logger.Fatalf("Failed to seed tiles: %v", err)
	}

	assetStore, err := assets.NewStore(cfg.AssetsDir, cfg.AssetsBaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize asset store: %v", err)
	}

	catalog := service.NewCatalogService(logger, dbStore, gameCfg)
	coordinator := service.NewCoordinator(logger, dbStore, dbStore, redisStore, redisStore, gameCfg)
	notifier := notify.NewNotifier(logger)

	runCtx, cancel := context.WithCancel(context.Background())

	app := &application{
		config:      cfg,
		gameCfg:     gameCfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		coordinator: coordinator,
		notifier:    notifier,
		shutdown:    cancel,
		sweeperDone: make(chan struct{}),
	}

	feed, err := redisStore.SubscribeChanges(runCtx)
	if err != nil {
		logger.Fatalf("Failed to subscribe to change feed: %v", err)
	}
	go notifier.Run(runCtx, feed)

	// Push trigger: a lock-change notification re-runs the same
	// idempotent stale sweep the ticker runs, so recovery does not
	// have to wait a full interval.
	notifier.Subscribe(func(resource string) {
		if resource != service.ResourceLock {
			return
		}
		if _, err := coordinator.ReleaseIfStale(context.Background()); err != nil {
			logger.Printf("Sweep on lock change failed: %v", err)
		}
	})

	go app.runLockSweeper(runCtx)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	catalogHandler := handler.NewCatalogHandler(logger, catalog, coordinator)
	lockHandler := handler.NewLockHandler(logger, coordinator)
	purchaseHandler := handler.NewPurchaseHandler(logger, coordinator, cfg.SupportContact)
	paymentHandler := handler.NewPaymentHandler(logger, &payment.SandboxProcessor{})
	uploadHandler := handler.NewUploadHandler(logger, assetStore)
	eventsHandler := handler.NewEventsHandler(logger, notifier)

	r.Method(http.MethodGet, "/catalog", catalogHandler)
	r.Get("/lock", lockHandler.Status)
	r.Post("/lock/acquire", lockHandler.Acquire)
	r.Post("/lock/release", lockHandler.Release)
	r.Method(http.MethodPost, "/purchase", purchaseHandler)
	r.Method(http.MethodPost, "/payment/initiate", paymentHandler)
	r.Method(http.MethodPost, "/upload", uploadHandler)
	r.Method(http.MethodGet, "/events", eventsHandler)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(assetStore.Dir()))))

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      r,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // /events streams indefinitely
		ErrorLog:     logger,
	}

	app.serve()
}

func (app *application) serve() {
	app.logger.Printf("Starting server on %s", app.server.Addr)

	errChan := make(chan error)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		app.logger.Fatalf("Server error: %v", err)
	case sig := <-quit:
		app.logger.Printf("Received signal %s. Shutting down server...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app.logger.Println("Signaling lock sweeper to stop...")
	app.shutdown()
	select {
	case <-app.sweeperDone:
		app.logger.Println("Lock sweeper stopped.")
	case <-time.After(10 * time.Second):
		app.logger.Println("Lock sweeper did not stop in time.")
	}

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Printf("Graceful server shutdown failed: %v", err)
	} else {
		app.logger.Println("Server gracefully stopped.")
	}

	app.logger.Println("Application shut down complete.")
}

// runLockSweeper force-releases stale checkout locks on a fixed
// interval so an abandoned client can never wedge the sale. The
// interval equals the lock timeout, which bounds how long a crashed
// checkout can hold the wall to two timeout windows at worst.
func (app *application) runLockSweeper(ctx context.Context) {
	defer close(app.sweeperDone)

	if _, err := app.coordinator.ReleaseIfStale(ctx); err != nil {
		app.logger.Printf("Sweeper: initial stale-lock check failed: %v", err)
	}

	ticker := time.NewTicker(app.gameCfg.LockTimeout)
	defer ticker.Stop()

	app.logger.Printf("Lock sweeper started. Will run every %s.", app.gameCfg.LockTimeout)

	for {
		select {
		case <-ticker.C:
			if _, err := app.coordinator.ReleaseIfStale(ctx); err != nil {
				app.logger.Printf("Sweeper: stale-lock check failed: %v", err)
			}
		case <-ctx.Done():
			app.logger.Println("Sweeper: received shutdown signal. Stopping...")
			return
		}
	}
}
