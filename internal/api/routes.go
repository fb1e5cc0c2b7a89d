package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tikuhub/tikuhub/internal/api/handlers"
	"github.com/tikuhub/tikuhub/internal/api/middleware"

	_ "github.com/tikuhub/tikuhub/internal/api/docs" // swagger docs
)

// RegisterRoutes wires the endpoint handlers into the gin engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, auth middleware.Authenticator) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	svc := r.Group("/v1/adapter-service")

	svc.GET("/health", h.Health)
	svc.GET("/providers", h.Providers)

	protected := svc.Group("")
	if auth != nil {
		protected.Use(middleware.RequireAPIToken(auth))
	}
	protected.POST("/search", h.Search)
	protected.GET("/stats", h.Stats)
}
