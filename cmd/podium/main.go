// ABOUTME: Entry point for the podium contest-site server
// ABOUTME: Loads config, opens the store, ensures site state and serves HTTP

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hscpc/podium/internal/config"
	"github.com/hscpc/podium/internal/site"
	"github.com/hscpc/podium/internal/store"
	"github.com/hscpc/podium/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (env-only config when omitted)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	slog.SetDefault(setupLogger(cfg.Logging))
	logger := slog.Default().With("component", "main")
	logger.Info("starting podium", "version", version, "addr", cfg.Server.HTTPAddr, "db", cfg.Store.DB)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Bootstrap once at startup so a virgin database is initialized before
	// the first request arrives.
	st, err := store.Open(cfg.Store.URL, cfg.Store.DB)
	if err != nil {
		return err
	}
	s, err := site.EnsureInitialized(ctx, st)
	st.Close()
	if err != nil {
		return err
	}
	logger.Info("site ready", "name", s.Name)

	sessions := web.NewSessions([]byte(cfg.Session.Secret), cfg.Session.TTL)
	handler := web.New(func() (*store.Store, error) {
		return store.Open(cfg.Store.URL, cfg.Store.DB)
	}, sessions)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}

// setupLogger builds the process logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
