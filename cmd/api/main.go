package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/config"
	"github.com/zhouzirui/vibecheck/backend/internal/handler"
	"github.com/zhouzirui/vibecheck/backend/internal/logging"
	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	gen, err := ai.NewGenerator(cfg.AI)
	if err != nil {
		logger.Warn("failed to initialize AI provider, falling back to offline heuristics",
			zap.String("provider", cfg.AI.Provider), zap.Error(err))
		gen = ai.OfflineGenerator{}
	}
	logger.Info("AI annotator ready", zap.String("generator", gen.Name()))

	devices := device.NewManager(device.Deps{
		Store:         store,
		Messages:      messages.NewRepository(store, logger),
		Tracker:       messages.NewTracker(store),
		Annotator:     ai.NewAnnotator(gen, logger),
		BaseURL:       cfg.Server.PublicBaseURL,
		SendDelay:     cfg.Send.Delay,
		FlashDuration: cfg.Send.FlashDuration,
		IdleTTL:       cfg.Server.DeviceIdleTTL,
		Logger:        logger,
	})
	defer devices.Close()

	limiter := middleware.NewSendLimiter(cfg.Send.RatePerMinute, cfg.Send.Burst)
	router := handler.NewRouter(devices, limiter, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func openStore(cfg config.StorageConfig, logger *zap.Logger) (*storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		return storage.New(storage.NewMemoryKV(), logger), nil
	case "pebble":
		kv, err := storage.OpenPebble(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("pebble storage opened", zap.String("path", cfg.Path))
		return storage.New(kv, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("VibeCheck backend listening", zap.String("addr", addr), zap.String("publicBaseURL", serverCfg.PublicBaseURL))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
