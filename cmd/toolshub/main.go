package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/toolshub/internal/backup"
	"github.com/dukerupert/toolshub/internal/config"
	"github.com/dukerupert/toolshub/internal/credential"
	"github.com/dukerupert/toolshub/internal/database"
	"github.com/dukerupert/toolshub/internal/email"
	"github.com/dukerupert/toolshub/internal/jobs"
	"github.com/dukerupert/toolshub/internal/logging"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	vault, err := credential.NewVault(cfg.SecretKey)
	if err != nil {
		logger.Error("init credential vault", "error", err)
		os.Exit(1)
	}

	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, payment calls will fail")
	}
	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !emailClient.Configured() {
		logger.Warn("postmark not configured, rental emails disabled")
	}

	srv := server.New(db, server.Config{
		BaseURL:            cfg.BaseURL,
		PlatformFeePercent: cfg.PlatformFeePercent,
		Processor: payment.NewClient(payment.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			BaseURL:       cfg.BaseURL,
			Currency:      cfg.Currency,
		}),
		Mailer: emailClient,
		Sealer: vault,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  cfg.Backup.Endpoint,
				Bucket:    cfg.Backup.Bucket,
				Region:    cfg.Backup.Region,
				AccessKey: cfg.Backup.AccessKey,
				SecretKey: cfg.Backup.SecretKey,
			},
			Passphrase:    cfg.Backup.Passphrase,
			RetentionDays: cfg.Backup.RetentionDays,
		},
	}, logger)

	scheduler, err := jobs.New(jobs.Deps{
		Sessions:       srv.SessionStore(),
		Limiter:        srv.RateLimiter(),
		Checkouts:      srv.CheckoutStore(),
		Backups:        srv.BackupManager(),
		BackupSchedule: cfg.Backup.Schedule,
	}, logger)
	if err != nil {
		logger.Error("register jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("toolshub starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
