// Package embedding wraps the external text-embedding service.
//
// The service is a black box that maps text to a unit-norm vector of a fixed,
// process-wide dimension. Any OpenAI-compatible /embeddings endpoint works
// (the reference deployment serves BGE-M3). Two modes exist: query and
// passage. They are symmetric for this system but kept distinct so that
// retrieval-tuned models with asymmetric instructions keep working.
//
// When the service is not configured the semantic cache degrades to
// exact-match-only lookups; callers treat a nil *Client as "unavailable".
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
)

// QueryInstruction is prepended to query-mode texts, mirroring the retrieval
// instruction the stored passages were indexed against.
const QueryInstruction = "Represent this question for retrieving the same or highly similar exam questions:"

// Client talks to an OpenAI-compatible embeddings endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	http    *http.Client
}

// Config configures the embedding client.
type Config struct {
	BaseURL string // e.g. "https://api.siliconflow.cn/v1"
	APIKey  string
	Model   string // e.g. "BAAI/bge-m3"
	Dim     int    // expected vector dimension
}

// New creates a client. The HTTP client is shared process-wide by the
// caller; pass the same instance the adapters use.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		dim:     cfg.Dim,
		http:    httpClient,
	}
}

// Dim returns the fixed vector dimension the client enforces.
func (c *Client) Dim() int { return c.dim }

// EmbedQuery embeds text in query mode (retrieval instruction applied).
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, QueryInstruction+text)
}

// EmbedPassage embeds text in passage mode, used when storing questions.
func (c *Client) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text)
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned HTTP %d", resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response contains no vectors")
	}

	vec := parsed.Data[0].Embedding
	if c.dim > 0 && len(vec) != c.dim {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.dim)
	}
	return Normalize(vec), nil
}

// Normalize scales v to unit L2 norm. Cosine distance over unit vectors is
// what the ANN index assumes; the service usually normalizes already, but
// the invariant is cheap to enforce here. A zero vector is returned as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// BuildText renders the question text the embedding is computed over:
// content plus the keyed option list, matching the form used at index time.
func BuildText(content string, options []string) string {
	text := content
	if len(options) > 0 {
		var b bytes.Buffer
		b.WriteString(text)
		b.WriteString("\n")
		for i, opt := range options {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%c. %s", 'A'+i, opt)
		}
		text = b.String()
	}
	return text
}
