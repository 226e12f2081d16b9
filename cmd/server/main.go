package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/bootstrap"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/connection"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/http"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.DefaultZapLogger().Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	registry, err := connection.Load(cfg.Service.ConnectionsFile, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load connections", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db)

	redisClient, err := bootstrap.NewRedisClient(&cfg.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	useCases := bootstrap.NewUseCases(cfg, registry, repos, redisClient, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := useCases.Worker.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start worker", zap.Error(err))
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, useCases.Translation, registry)

	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := useCases.Worker.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Failed to stop worker", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Shut down successfully")
}
