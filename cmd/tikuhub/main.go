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

	"github.com/tikuhub/tikuhub/internal/api"
	"github.com/tikuhub/tikuhub/internal/api/handlers"
	"github.com/tikuhub/tikuhub/internal/auth"
	"github.com/tikuhub/tikuhub/internal/cache"
	"github.com/tikuhub/tikuhub/internal/config"
	"github.com/tikuhub/tikuhub/internal/database"
	"github.com/tikuhub/tikuhub/internal/embedding"
	"github.com/tikuhub/tikuhub/internal/engine"
	"github.com/tikuhub/tikuhub/internal/logging"
	"github.com/tikuhub/tikuhub/internal/providers"
)

func main() {
	var (
		host     = flag.String("host", "", "Override bind host")
		port     = flag.Int("port", 0, "Override bind port")
		dsn      = flag.String("dsn", "", "Override database DSN")
		jsonLogs = flag.Bool("json-logs", false, "Force JSON structured logging")
		debug    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg := config.Load()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *jsonLogs {
		cfg.Logging.Format = "json"
	}
	if *debug {
		cfg.Logging.Level = "DEBUG"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("tikuhub starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"max_concurrent", cfg.Engine.MaxConcurrent,
		"semantic_cache", cfg.Embedding.BaseURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// One pooled HTTP client shared read-only by every adapter.
	httpClient := &http.Client{Timeout: cfg.Engine.HTTPTimeout}

	var embedClient *embedding.Client
	if cfg.Embedding.BaseURL != "" {
		embedClient = embedding.New(embedding.Config{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			Dim:     cfg.Embedding.Dim,
		}, httpClient)
	} else {
		logger.Warn("no embedding service configured, cache runs exact-match only")
	}

	store := cache.New(db.Pool, embedClient, logger)
	authSvc := auth.New(db.Pool)

	registry := providers.NewRegistry()
	if err := providers.RegisterBuiltins(registry, providers.Deps{
		HTTP:   httpClient,
		Cache:  store,
		Logger: logger,
	}); err != nil {
		logger.Error("adapter registration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("adapters registered", "count", len(registry.All()))

	eng := engine.New(registry, store, logger, cfg.Engine.MaxConcurrent)
	h := handlers.New(eng, registry, authSvc, db, logger)
	server := api.New(cfg, h, authSvc, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr())
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	// Let detached write-through tasks drain before closing the pool.
	eng.Wait()
	logger.Info("tikuhub stopped")
}
