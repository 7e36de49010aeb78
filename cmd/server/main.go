package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/formdesk/channel-relay/internal/config"
	"github.com/formdesk/channel-relay/internal/database"
	"github.com/formdesk/channel-relay/internal/logging"
	"github.com/formdesk/channel-relay/internal/repository"
	"github.com/formdesk/channel-relay/internal/server"
	"github.com/formdesk/channel-relay/internal/slackapi"
	"github.com/formdesk/channel-relay/internal/version"
	"github.com/formdesk/channel-relay/internal/workflow"
)

func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting channel relay",
		zap.String("version", version.GetVersion()),
		zap.String("host", cfg.ServerHost),
		zap.Int("port", cfg.ServerPort))

	if !cfg.SignatureVerificationEnabled() {
		logger.Warn("Slack signature verification is disabled; inbound webhooks are unauthenticated")
	}

	db, err := database.NewDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	repo := repository.NewChannelRequestRepository(db.GetDB(), logger)
	slackClient := slackapi.NewClient(cfg, logger)
	wf := workflow.New(repo, slackClient, logger)

	srv := server.NewServer(cfg, logger, wf, slackClient, repo)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Channel relay stopped")
}
