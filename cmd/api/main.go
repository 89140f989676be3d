package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dispatch-service/internal/api/http"
	"github.com/spec-kit/dispatch-service/internal/api/http/handlers"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/persistence"
	"github.com/spec-kit/dispatch-service/internal/repository"
	"github.com/spec-kit/dispatch-service/internal/service"
	"github.com/spec-kit/dispatch-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	natsConn, err := persistence.NewNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer natsConn.Close()

	metrics := observability.NewMetrics()
	wallClock := clock.WallClock

	pool := pg.PoolHandle()
	orderRepo := repository.NewServiceOrderRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	condominiumRepo := repository.NewCondominiumRepository(pool)
	elevatorRepo := repository.NewElevatorRepository(pool)
	activityRepo := repository.NewOrderActivityRepository(pool)
	importRepo := repository.NewImportJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := events.NewNATSBroadcaster(natsConn.ConnHandle())

	orderService := service.NewOrderService(service.OrderDependencies{
		OrderRepo:       orderRepo,
		ElevatorRepo:    elevatorRepo,
		CondominiumRepo: condominiumRepo,
		ActivityRepo:    activityRepo,
		TxRunner:        txRunner,
		Dispatcher:      dispatcher,
		Idempotency:     persistence.NewIdempotencyStore(redis, 0),
		Clock:           wallClock,
	})
	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		OrderRepo:       orderRepo,
		TechnicianRepo:  technicianRepo,
		CondominiumRepo: condominiumRepo,
		ActivityRepo:    activityRepo,
		TxRunner:        txRunner,
		Dispatcher:      dispatcher,
		Clock:           wallClock,
	})
	slaService := service.NewSLAService(orderRepo, dispatcher, wallClock, logger)
	technicianService := service.NewTechnicianService(technicianRepo, txRunner, wallClock)
	importService := service.NewImportService(service.ImportDependencies{
		JobRepo:         importRepo,
		CondominiumRepo: condominiumRepo,
		ElevatorRepo:    elevatorRepo,
		TechnicianRepo:  technicianRepo,
		Dispatcher:      dispatcher,
		Clock:           wallClock,
		Logger:          logger,
		BatchSize:       cfg.Import.BatchSize,
	})
	authService := service.NewAuthService(cfg.Auth, userRepo)
	notificationService := service.NewNotificationService(dispatcher, broadcaster, logger)

	worker.StartNotificationWorker(notificationService)

	sweeper := worker.NewSLASweeper(slaService, redis, metrics, wallClock, logger, cfg.Sweeper)
	go sweeper.Run(ctx)

	importWorker := worker.NewImportWorker(importService, service.FileRowSourceResolver(), wallClock, logger, cfg.Import)
	go importWorker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout() + 5*time.Second,
		WriteTimeout: cfg.App.RequestTimeout() + 5*time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Dispatch:       handlers.NewDispatchHandler(dispatchService),
		Technicians:    handlers.NewTechniciansHandler(technicianService),
		Imports:        handlers.NewImportsHandler(importService, importWorker),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
