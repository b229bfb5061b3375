package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/labborrow/internal/api"
	"github.com/erazemk/labborrow/internal/auth"
	"github.com/erazemk/labborrow/internal/borrow"
	"github.com/erazemk/labborrow/internal/config"
	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/metrics"
	"github.com/erazemk/labborrow/internal/upload"
)

const usage = `Usage: labborrow [command] [flags]

Commands:
  serve    run the HTTP server (default)
  token    print a signed bearer token for local testing

Configuration is read from the environment and from .env if present.
Run "labborrow <command> -h" for command flags.
`

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "token":
		err = runToken(args)
	case "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		ServiceName: "labborrow",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := context.Background()

	if cfg.JWT.Secret == "" {
		secret, err := generateSecret()
		if err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		cfg.JWT.Secret = secret
		log.Warn(ctx, "JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}

	database, err := db.Open(ctx, cfg.DB.URL, db.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.Error(ctx, "database connection failed", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	log.Info(log.WithField(ctx, "dialect", database.Dialect), "database ready")

	blob, err := newBlob(ctx, cfg)
	if err != nil {
		return err
	}
	uploads := upload.New(blob, cfg.Uploads.MaxImageDimension)
	log.Info(log.WithField(ctx, "backend", cfg.Uploads.Backend), "uploads ready")

	m := metrics.New()
	handler := api.NewRouter(api.Options{
		DB:                 database,
		Borrows:            borrow.NewService(database, uploads, log, m),
		Uploads:            uploads,
		Log:                log,
		Metrics:            m,
		JWTSecret:          cfg.JWT.Secret,
		BorrowRequiresAuth: cfg.App.BorrowRequiresAuth,
		MaxUploadBytes:     cfg.Uploads.MaxBytes(),
	})

	server := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info(log.WithField(ctx, "signal", sig.String()), "shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server forced to shutdown", err)
		}
	}()

	log.Info(log.WithField(ctx, "addr", server.Addr), "server started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info(ctx, "server stopped, closing database")
	return nil
}

func newBlob(ctx context.Context, cfg *config.Config) (upload.Blob, error) {
	if cfg.Uploads.Backend == config.UploadBackendS3 {
		blob, err := upload.NewS3Blob(ctx, upload.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to s3: %w", err)
		}
		return blob, nil
	}

	blob, err := upload.NewDiskBlob(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)

	var userID, role string
	var ttl time.Duration
	fs.StringVar(&userID, "user", "", "user id to put in the token (required)")
	fs.StringVar(&role, "role", "staff", "role claim")
	fs.DurationVar(&ttl, "ttl", auth.TokenExpiry, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if userID == "" {
		fs.Usage()
		return fmt.Errorf("-user is required")
	}

	cfg, err := config.LoadJWT()
	if err != nil {
		return err
	}
	if cfg.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set to mint tokens")
	}

	token, err := auth.GenerateToken(cfg.Secret, userID, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// generateSecret returns 32 random bytes, hex encoded.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
