package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tikuhub/tikuhub/internal/api/models"
)

// Providers godoc
// @Summary Adapter catalogue
// @Description Lists every registered provider adapter with its configuration schema.
// @Tags providers
// @Produce json
// @Success 200 {object} models.ProvidersResponse
// @Router /providers [get]
func (h *Handler) Providers(c *gin.Context) {
	all := h.registry.All()
	infos := make([]models.ProviderInfo, 0, len(all))
	for _, a := range all {
		d := a.Descriptor()
		infos = append(infos, models.ProviderInfo{
			Name:      d.Name,
			Home:      d.Home,
			Free:      d.Free,
			Pay:       d.Pay,
			Cacheable: d.Cacheable,
			Schema:    d.Schema,
		})
	}
	c.JSON(http.StatusOK, models.ProvidersResponse{Providers: infos})
}
