// Package main is the entry point for the QI research API server.
//
// main only reads configuration, builds the logger, the database and the
// external clients, and hands them to the server. All behaviour lives under
// internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/qi-research/internal/auth"
	"github.com/sakif/qi-research/internal/config"
	"github.com/sakif/qi-research/internal/literature"
	"github.com/sakif/qi-research/internal/llm"
	"github.com/sakif/qi-research/internal/mail"
	sqliteRepo "github.com/sakif/qi-research/internal/repository/sqlite"
	"github.com/sakif/qi-research/internal/server"
	"github.com/sakif/qi-research/internal/service"
	"github.com/sakif/qi-research/internal/storage/drive"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// === DATABASE ===
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	logger.Info("database opened", slog.String("path", cfg.DBPath))

	// === AUTH ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return err
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		db.Close()
		return err
	}

	// === EXTERNAL SERVICES ===
	// files stays a nil interface when Drive is not configured; a typed nil
	// *drive.Uploader would not compare equal to nil in the service.
	var files service.FileStore
	if cfg.DriveEnabled() {
		uploader, err := drive.NewUploader(context.Background(), cfg.GoogleCredentialsFile, cfg.DriveFolderID, cfg.DriveShareRole)
		if err != nil {
			db.Close()
			return err
		}
		files = uploader
	} else {
		logger.Warn("GOOGLE_CREDENTIALS_FILE not set, document generation is disabled")
	}

	var mailer mail.Mailer
	if cfg.SMTPEnabled() {
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
		if err != nil {
			db.Close()
			return err
		}
		mailer = m
	} else {
		logger.Warn("SMTP_HOST not set, notification emails are only logged")
		mailer = mail.NewLogMailer(logger)
	}

	srv := server.New(server.Config{
		Addr:               cfg.Addr(),
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		ShutdownTimeout:    cfg.ShutdownTimeout,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		RateLimitEnabled:   cfg.RateLimitEnabled,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
	}, db, server.Deps{
		Tokens:    tokens,
		Passwords: passwords,
		Mailer:    mailer,
		Completer: llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAITimeout, nil),
		Search:    literature.NewClient(cfg.LiteratureBaseURL, cfg.LiteratureTimeout, nil),
		Files:     files,
		TmpDir:    cfg.TmpDir,
	}, logger)

	// Start blocks until SIGINT/SIGTERM and closes the database on return.
	return srv.Start()
}

// newLogger returns a text logger in development and a JSON logger
// otherwise, at the level named by LOG_LEVEL.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
