package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/mistreatedbee/Communityhub-server/internal/database"
	"github.com/mistreatedbee/Communityhub-server/internal/mailer"
	"github.com/mistreatedbee/Communityhub-server/internal/tasks"
	"github.com/mistreatedbee/Communityhub-server/pkg/config"
	"github.com/mistreatedbee/Communityhub-server/pkg/queue"
	"github.com/mistreatedbee/Communityhub-server/pkg/util"
	"github.com/robfig/cron/v3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting CommunityHub worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, 10)
	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	mail := mailer.New(cfg.SMTP, cfg.Server.BaseURL, logger)
	handler := tasks.NewHandler(db, logger, mail)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic invitation sweep. The sweep only tidies stored statuses;
	// reads never depend on it having run.
	if err := util.ValidateCronExpr(cfg.Invitations.SweepCron); err != nil {
		logger.Error("invalid sweep cron expression", "expr", cfg.Invitations.SweepCron, "error", err)
		os.Exit(1)
	}
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Invitations.SweepCron, func() {
		if _, err := client.Enqueue(tasks.NewInvitationSweepTask()); err != nil {
			logger.Error("failed to enqueue invitation sweep", "error", err)
		}
	})
	if err != nil {
		logger.Error("failed to schedule invitation sweep", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
