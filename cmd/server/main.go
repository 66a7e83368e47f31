package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/application/documents"
	"github.com/stockops/backend/internal/application/pickingplan"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/shared"
	"github.com/stockops/backend/internal/infrastructure/cache"
	"github.com/stockops/backend/internal/infrastructure/config"
	"github.com/stockops/backend/internal/infrastructure/event"
	"github.com/stockops/backend/internal/infrastructure/logger"
	"github.com/stockops/backend/internal/infrastructure/persistence"
	"github.com/stockops/backend/internal/interfaces/http/handler"
	"github.com/stockops/backend/internal/interfaces/http/middleware"
	"github.com/stockops/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stockops backend",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment))

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	idempotency, err := buildIdempotencyStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotency.Close()
	}()

	// repositories
	materials := persistence.NewGormMaterialRepository(db.DB)
	balances := persistence.NewGormBalanceRepository(db.DB)
	movements := persistence.NewGormMovementRepository(db.DB)
	fifoLayers := persistence.NewGormFIFOLayerRepository(db.DB)
	waRecords := persistence.NewGormWeightedAverageRepository(db.DB)
	reservations := persistence.NewGormReservationRepository(db.DB)

	// event bus with the audit subscriber
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditHandler(log))

	// application services
	sequences := costing.NewSequenceAllocator()
	receiving := documents.NewGoodsReceivingService(materials, balances, movements,
		fifoLayers, waRecords, sequences, idempotency, log).
		WithEventPublisher(bus)
	delivery := documents.NewGoodsDeliveryService(materials, balances, movements,
		reservations, fifoLayers, waRecords, idempotency, log).
		WithEventPublisher(bus)
	returns := documents.NewPurchaseReturnService(materials, balances, movements,
		fifoLayers, waRecords, idempotency, log).
		WithEventPublisher(bus)
	plans := pickingplan.NewPlanService(materials, balances, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
	)

	router.NewRouter(engine).
		Register(handler.NewSystemHandler(db)).
		Register(handler.NewBalanceHandler(balances, movements)).
		Register(handler.NewReservationHandler(reservations)).
		Register(handler.NewDocumentHandler(receiving, delivery, returns)).
		Register(handler.NewPickingHandler(plans)).
		Setup()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

func buildIdempotencyStore(cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Redis.Enabled {
		log.Info("Using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore(), nil
	}
	log.Info("Using redis idempotency store", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisIdempotencyStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}
