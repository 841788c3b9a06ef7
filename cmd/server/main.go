package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"devmatch/internal/config"
	"devmatch/internal/handler"
	"devmatch/internal/httpserver"
	"devmatch/internal/repository"
	"devmatch/internal/service/auth"
	"devmatch/internal/service/dashboard"
	"devmatch/internal/service/matching"
	"devmatch/internal/service/messaging"
	"devmatch/internal/service/project"
	"devmatch/pkg/db"
	"devmatch/pkg/logger"
	"devmatch/pkg/mq"
	"devmatch/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Server.Debug)
	defer log.Sync()

	log.Info("Starting devmatch server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("http_port", cfg.Server.Port),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, dbConn, log); err != nil {
		migrateCancel()
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrateCancel()

	// Redis
	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()

	// MQ publisher. The server stays up without it; events are dropped and
	// readyz reports not ready.
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Error("Failed to init MQ publisher, events disabled", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
			log.Info("MQ publisher connected")
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	applicationRepo := repository.NewApplicationRepository(dbConn, log)
	messageRepo := repository.NewMessageRepository(dbConn, log)

	// Services. Messaging goes first so the other engines can emit system
	// messages through it. The interface variables stay nil when the MQ
	// connection failed, so the services skip publishing entirely.
	var projectPub project.Publisher
	var matchingPub matching.Publisher
	var messagingPub messaging.Publisher
	if publisher != nil {
		projectPub = publisher
		matchingPub = publisher
		messagingPub = publisher
	}

	messagingSvc := messaging.NewService(messageRepo, messagingPub, log)
	projectSvc := project.NewService(projectRepo, projectPub, messagingSvc, log)
	matchingSvc := matching.NewService(projectRepo, applicationRepo, matchingPub, messagingSvc, log)
	dashboardSvc := dashboard.NewService(projectRepo, applicationRepo, messageRepo, userRepo, log)

	denylist := auth.NewDenylist(redisClient, log)
	authSvc := auth.NewService(userRepo, denylist, cfg.JWT.Secret, log)

	// Handlers and router
	authHandler := handler.NewAuthHandler(authSvc, log)
	projectHandler := handler.NewProjectHandler(projectSvc, matchingSvc, log)
	messageHandler := handler.NewMessageHandler(messagingSvc, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, log)

	router := httpserver.NewRouter(
		authHandler, projectHandler, messageHandler, dashboardHandler,
		cfg.JWT.Secret, denylist, log, dbConn, publisher,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("devmatch server is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down devmatch server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("devmatch server shutdown complete")
}
