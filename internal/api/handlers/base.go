// Package handlers implements the endpoint handlers of the search API.
//
// Endpoints:
//   - POST /v1/adapter-service/search - federated question search
//   - GET  /v1/adapter-service/providers - adapter catalogue with config schemas
//   - GET  /v1/adapter-service/health - health check
//   - GET  /v1/adapter-service/stats - process statistics
//
// All endpoints except health and the provider catalogue require bearer
// token authentication via the Authorization header.
//
// @title tikuhub API
// @version 1.0
// @description Federated question-answering aggregator over question-bank and LLM providers.
//
// @host localhost:8080
// @BasePath /v1/adapter-service
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/tikuhub/tikuhub/internal/auth"
	"github.com/tikuhub/tikuhub/internal/engine"
	"github.com/tikuhub/tikuhub/internal/providers"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// Searcher runs one resolved search request.
type Searcher interface {
	Search(ctx context.Context, query *qa.Query, providerList []*qa.Provider) (*engine.Result, error)
}

// ProviderConfigSource loads a token's stored provider configurations.
type ProviderConfigSource interface {
	ProviderConfigs(ctx context.Context, tokenID int64) ([]*qa.Provider, error)
}

// Pinger checks a dependency's liveness.
type Pinger interface {
	Health(ctx context.Context) error
}

// Handler carries the dependencies of all API handlers.
type Handler struct {
	searcher  Searcher
	registry  *providers.Registry
	configs   ProviderConfigSource
	db        Pinger
	logger    *slog.Logger
	startTime time.Time
}

// New creates a Handler.
func New(searcher Searcher, registry *providers.Registry, configs ProviderConfigSource, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		searcher:  searcher,
		registry:  registry,
		configs:   configs,
		db:        db,
		logger:    logger,
		startTime: time.Now(),
	}
}

// tokenID is a nil-safe accessor used by the search handler.
func tokenID(t *auth.Token) int64 {
	if t == nil {
		return 0
	}
	return t.ID
}
