package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ach-batch-backend/internal/config"
	"ach-batch-backend/internal/logging"
	"ach-batch-backend/internal/repository"
	"ach-batch-backend/internal/routes"
	"ach-batch-backend/internal/services/nacha"
	"ach-batch-backend/internal/services/processing"
	"ach-batch-backend/internal/transmit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := func() time.Time { return time.Now().In(loc) }

	var (
		store processing.BatchStore
		ping  routes.Pinger
	)
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, batches are lost on restart")
		store = repository.NewMemoryRepository()
	default:
		db, err := config.InitDB(cfg, logger)
		if err != nil {
			return err
		}
		repo := repository.NewBatchRepository(db)
		if cfg.DBAutoMigrate {
			if err := repo.Migrate(); err != nil {
				return err
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		store = repo
		ping = sqlDB.PingContext
	}

	formatter, err := nacha.NewFormatter(cfg.Originator(), clock)
	if err != nil {
		return err
	}

	opts := []processing.Option{
		processing.WithClock(clock),
		processing.WithLogger(logger.Named("processing")),
	}
	if cfg.ACH.OutboxDir != "" {
		outbox, err := transmit.NewDirectoryTransmitter(cfg.ACH.OutboxDir, logger.Named("transmit"))
		if err != nil {
			return err
		}
		opts = append(opts, processing.WithTransmitter(
			transmit.NewBreaker("outbox", outbox, transmit.DefaultBreakerConfig, logger.Named("transmit"))))
	}
	svc := processing.NewService(store, formatter, opts...)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger.Named("http")))
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Company-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, svc, ping, logger.Named("handler"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
