// Command profiled serves the profile management HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"provizor/internal/database"
	"provizor/internal/profiles"
	"provizor/internal/web"
	"provizor/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profiled", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "path to a profiled.yaml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Server.LogLevel, false); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.L()
	defer func() { _ = log.Sync() }()

	db, err := database.Open(database.Config{Path: cfg.Database.Path, DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	store, err := openProfileRepo(cfg.Profiles.RepoPath, log)
	if err != nil {
		return err
	}
	catalog, err := profiles.LoadCatalog(cfg.Profiles.CatalogPath)
	if err != nil {
		return fmt.Errorf("load service catalog: %w", err)
	}

	ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("parse auth.token_ttl: %w", err)
	}
	jwt, err := web.NewJWTService(web.JWTConfig{Secret: cfg.Auth.JWTSecret, TTL: ttl})
	if err != nil {
		return err
	}

	admin := web.NewAdminStore(cfg.Profiles.ConfigRepoPath, log)

	srv := web.NewServer(db, store, catalog, admin, jwt, log)
	srv.CookieSecure = cfg.Server.TLS

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("profiled listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("profiled stopped")
	return nil
}

// openProfileRepo opens the branch-per-user repository, initialising it on
// first start.
func openProfileRepo(path string, log *zap.Logger) (*profiles.Store, error) {
	store, err := profiles.Open(path, log)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return profiles.InitRepo(path, log)
	}
	if err != nil {
		return nil, fmt.Errorf("open profiles repo: %w", err)
	}
	return store, nil
}
