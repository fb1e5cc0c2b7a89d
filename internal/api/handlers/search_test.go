package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikuhub/tikuhub/internal/api"
	"github.com/tikuhub/tikuhub/internal/api/handlers"
	"github.com/tikuhub/tikuhub/internal/api/middleware"
	"github.com/tikuhub/tikuhub/internal/auth"
	"github.com/tikuhub/tikuhub/internal/engine"
	"github.com/tikuhub/tikuhub/internal/providers"
	"github.com/tikuhub/tikuhub/internal/qa"
)

type stubSearcher struct {
	lastQuery     *qa.Query
	lastProviders []*qa.Provider
	result        *engine.Result
	err           error
}

func (s *stubSearcher) Search(_ context.Context, query *qa.Query, list []*qa.Provider) (*engine.Result, error) {
	s.lastQuery = query
	s.lastProviders = list
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubConfigs struct {
	providers []*qa.Provider
}

func (s *stubConfigs) ProviderConfigs(context.Context, int64) ([]*qa.Provider, error) {
	return s.providers, nil
}

type allowAll struct{}

func (allowAll) Authenticate(context.Context, string) (*auth.Token, error) {
	return &auth.Token{ID: 1}, nil
}

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (*auth.Token, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, searcher handlers.Searcher, configs handlers.ProviderConfigSource, a middleware.Authenticator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := handlers.New(searcher, providers.NewRegistry(), configs, nil, testLogger())
	r := gin.New()
	api.RegisterRoutes(r, h, a)
	return r
}

func doSearch(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/adapter-service/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func searchBody(providerNames ...string) map[string]any {
	list := make([]map[string]any, len(providerNames))
	for i, n := range providerNames {
		list[i] = map[string]any{"name": n}
	}
	return map[string]any{
		"query":     map[string]any{"content": "题目", "type": 0, "options": []string{"甲", "乙"}},
		"providers": list,
	}
}

func okResult() *engine.Result {
	u := engine.Aggregate(
		&qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙"}},
		[]*qa.Answer{qa.ChoiceAnswer("p1", []string{"A"})},
	)
	return &engine.Result{
		Query:      &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙"}},
		Unified:    u,
		Answers:    []*qa.Answer{qa.ChoiceAnswer("p1", []string{"A"})},
		Successful: 1,
	}
}

func TestSearchHappyPath(t *testing.T) {
	s := &stubSearcher{result: okResult()}
	r := newTestRouter(t, s, &stubConfigs{}, allowAll{})

	w := doSearch(t, r, searchBody("p1"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UnifiedAnswer struct {
			AnswerKey []string `json:"answerKey"`
		} `json:"unified_answer"`
		TotalProviders      int `json:"total_providers"`
		SuccessfulProviders int `json:"successful_providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A"}, resp.UnifiedAnswer.AnswerKey)
	assert.Equal(t, 1, resp.TotalProviders)
	assert.Equal(t, 1, resp.SuccessfulProviders)
}

func TestSearchEmptyProviderListIs400(t *testing.T) {
	s := &stubSearcher{result: okResult()}
	r := newTestRouter(t, s, &stubConfigs{}, allowAll{})

	w := doSearch(t, r, map[string]any{
		"query": map[string]any{"content": "题目", "type": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no providers")
}

func TestSearchFallsBackToStoredProviders(t *testing.T) {
	s := &stubSearcher{result: okResult()}
	stored := &stubConfigs{providers: []*qa.Provider{
		{Name: "言溪题库", Config: qa.Config{"token": "stored"}},
	}}
	r := newTestRouter(t, s, stored, allowAll{})

	w := doSearch(t, r, map[string]any{
		"query": map[string]any{"content": "题目", "type": 0},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.lastProviders, 1)
	assert.Equal(t, "言溪题库", s.lastProviders[0].Name)
	assert.Equal(t, "stored", s.lastProviders[0].Config.String("token"))
}

func TestSearchMergesRequestConfigOntoStored(t *testing.T) {
	s := &stubSearcher{result: okResult()}
	stored := &stubConfigs{providers: []*qa.Provider{
		{Name: "言溪题库", Config: qa.Config{"token": "stored", "extra": "keep"}},
	}}
	r := newTestRouter(t, s, stored, allowAll{})

	w := doSearch(t, r, map[string]any{
		"query": map[string]any{"content": "题目", "type": 0},
		"providers": []map[string]any{
			{"name": "言溪题库", "config": map[string]any{"token": "request"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.lastProviders, 1)
	// Request wins on conflict, stored fields survive otherwise.
	assert.Equal(t, "request", s.lastProviders[0].Config.String("token"))
	assert.Equal(t, "keep", s.lastProviders[0].Config.String("extra"))
}

func TestSearchInvalidType(t *testing.T) {
	r := newTestRouter(t, &stubSearcher{result: okResult()}, &stubConfigs{}, allowAll{})

	w := doSearch(t, r, map[string]any{
		"query":     map[string]any{"content": "题目", "type": 9},
		"providers": []map[string]any{{"name": "p1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchMissingContent(t *testing.T) {
	r := newTestRouter(t, &stubSearcher{result: okResult()}, &stubConfigs{}, allowAll{})

	w := doSearch(t, r, map[string]any{
		"query":     map[string]any{"type": 0},
		"providers": []map[string]any{{"name": "p1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRequiresToken(t *testing.T) {
	r := newTestRouter(t, &stubSearcher{result: okResult()}, &stubConfigs{}, denyAll{})

	payload, _ := json.Marshal(searchBody("p1"))
	req := httptest.NewRequest(http.MethodPost, "/v1/adapter-service/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchRejectsUnknownToken(t *testing.T) {
	r := newTestRouter(t, &stubSearcher{result: okResult()}, &stubConfigs{}, denyAll{})

	w := doSearch(t, r, searchBody("p1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t, &stubSearcher{result: okResult()}, &stubConfigs{}, denyAll{})

	req := httptest.NewRequest(http.MethodGet, "/v1/adapter-service/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
