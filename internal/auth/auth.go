// Package auth resolves bearer API tokens and the per-token stored provider
// configurations. Token issuance and management live outside this service;
// the search path only reads.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// Token identifies an authenticated API caller.
type Token struct {
	ID    int64
	Label string
}

// Service performs token and provider-config lookups on the shared pool.
type Service struct {
	pool *pgxpool.Pool
}

// New creates a Service.
func New(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Authenticate resolves a bearer token value to its Token row, or nil when
// the token is unknown.
func (s *Service) Authenticate(ctx context.Context, token string) (*Token, error) {
	if token == "" {
		return nil, nil
	}
	var t Token
	var label *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, label FROM api_tokens WHERE token = $1`, token,
	).Scan(&t.ID, &label)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	if label != nil {
		t.Label = *label
	}
	return &t, nil
}

// ProviderConfigs returns the token's enabled stored provider
// configurations, in the caller's configured order. Used when a search
// request omits its provider list.
func (s *Service) ProviderConfigs(ctx context.Context, tokenID int64) ([]*qa.Provider, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT provider_name, config
		FROM token_provider_configs
		WHERE token_id = $1 AND enabled
		ORDER BY sort_order, id`,
		tokenID)
	if err != nil {
		return nil, fmt.Errorf("provider config lookup: %w", err)
	}
	defer rows.Close()

	var out []*qa.Provider
	for rows.Next() {
		var (
			name    string
			cfgJSON []byte
		)
		if err := rows.Scan(&name, &cfgJSON); err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		p := &qa.Provider{Name: name}
		if len(cfgJSON) > 0 {
			if err := json.Unmarshal(cfgJSON, &p.Config); err != nil {
				return nil, fmt.Errorf("decode config for %s: %w", name, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
