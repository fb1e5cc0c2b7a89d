package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tikuhub/tikuhub/internal/api/middleware"
	"github.com/tikuhub/tikuhub/internal/api/models"
	"github.com/tikuhub/tikuhub/internal/engine"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// Search godoc
// @Summary Federated question search
// @Description Fans the question out to the requested providers, aggregates a unified answer by voting and returns every per-provider result.
// @Tags search
// @Accept json
// @Produce json
// @Param request body models.SearchRequest true "question and provider selection"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /search [post]
func (h *Handler) Search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if err := validateQuery(&req.Query); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	providerList, err := h.resolveProviders(c, req.Providers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load provider configuration"})
		return
	}
	if len(providerList) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no providers specified"})
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), &req.Query, providerList)
	if err != nil {
		if errors.Is(err, engine.ErrNoProviders) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no providers specified"})
			return
		}
		h.logger.Error("search failed", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "search failed"})
		return
	}

	h.logger.Info("search complete",
		"type", int(req.Query.Type),
		"total", result.Total(),
		"successful", result.Successful,
		"answer", firstNonEmpty(result.Unified.AnswerKeyText, result.Unified.AnswerText),
	)

	c.JSON(http.StatusOK, models.SearchResponse{
		Query:               result.Query,
		UnifiedAnswer:       result.Unified,
		ProviderAnswers:     result.Answers,
		SuccessfulProviders: result.Successful,
		FailedProviders:     result.Failed,
		TotalProviders:      result.Total(),
	})
}

func validateQuery(q *qa.Query) error {
	if q.Content == "" {
		return errors.New("query.content must not be empty")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("query.type must be 0..4, got %d", int(q.Type))
	}
	if len(q.Options) > qa.MaxOptions {
		return fmt.Errorf("query carries %d options, maximum is %d", len(q.Options), qa.MaxOptions)
	}
	return nil
}

// resolveProviders produces the final provider list. A request-supplied list
// wins, with each entry's config merged onto the caller's stored config for
// that provider (request values win on conflict). Without a request list the
// stored enabled configuration is used as-is.
func (h *Handler) resolveProviders(c *gin.Context, requested []*qa.Provider) ([]*qa.Provider, error) {
	token := middleware.TokenFromContext(c)
	stored, err := h.configs.ProviderConfigs(c.Request.Context(), tokenID(token))
	if err != nil {
		return nil, err
	}

	if len(requested) == 0 {
		return stored, nil
	}

	storedByName := make(map[string]*qa.Provider, len(stored))
	for _, p := range stored {
		storedByName[p.Name] = p
	}

	out := make([]*qa.Provider, 0, len(requested))
	for _, p := range requested {
		merged := &qa.Provider{Name: p.Name, Priority: p.Priority, Config: qa.Config{}}
		if s := storedByName[p.Name]; s != nil {
			for k, v := range s.Config {
				merged.Config[k] = v
			}
		}
		for k, v := range p.Config {
			merged.Config[k] = v
		}
		out = append(out, merged)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
