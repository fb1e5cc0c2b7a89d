// Package models defines the request and response types of the search API.
// The field names are part of the wire contract consumed by browser scripts;
// do not rename them.
package models

import (
	"time"

	"github.com/tikuhub/tikuhub/internal/engine"
	"github.com/tikuhub/tikuhub/internal/providers"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response.
type StatusResponse struct {
	Status string `json:"status"`
}

// SearchRequest is the body of POST /v1/adapter-service/search. Providers
// may be omitted; the caller's stored configuration is used instead.
type SearchRequest struct {
	Query     qa.Query       `json:"query" binding:"required"`
	Providers []*qa.Provider `json:"providers"`
}

// SearchResponse is the consolidated answer for one search.
type SearchResponse struct {
	Query               *qa.Query            `json:"query"`
	UnifiedAnswer       engine.UnifiedAnswer `json:"unified_answer"`
	ProviderAnswers     []*qa.Answer         `json:"provider_answers"`
	SuccessfulProviders int                  `json:"successful_providers"`
	FailedProviders     int                  `json:"failed_providers"`
	TotalProviders      int                  `json:"total_providers"`
}

// ProviderInfo is one catalogue entry: an adapter's descriptor including its
// config schema, so clients can render configuration forms.
type ProviderInfo struct {
	Name      string           `json:"name"`
	Home      string           `json:"home"`
	Free      bool             `json:"free"`
	Pay       bool             `json:"pay"`
	Cacheable bool             `json:"cacheable"`
	Schema    providers.Schema `json:"schema"`
}

// ProvidersResponse lists every registered adapter.
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

// StatsResponse reports process runtime statistics.
type StatsResponse struct {
	Uptime        string    `json:"uptime"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
	GoRoutines    int       `json:"goroutines"`
	MemoryAllocMB float64   `json:"memory_alloc_mb"`
	NumCPU        int       `json:"num_cpu"`
	CPUPercent    float64   `json:"cpu_percent,omitempty"`
	MemoryUsedPct float64   `json:"memory_used_pct,omitempty"`
	DatabaseOK    bool      `json:"database_ok"`
}
