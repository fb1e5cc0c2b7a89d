// Package middleware provides the HTTP middleware of the search API: bearer
// token authentication and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tikuhub/tikuhub/internal/api/models"
	"github.com/tikuhub/tikuhub/internal/auth"
)

// TokenKey is the gin context key under which the authenticated token is
// stored.
const TokenKey = "api_token"

// Authenticator resolves a bearer token value to its owner.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Token, error)
}

// RequireAPIToken enforces bearer token authentication. Clients send
// `Authorization: Bearer <token>`; unknown tokens get 401.
func RequireAPIToken(svc Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := bearerToken(c.GetHeader("Authorization"))
		if value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing bearer token"})
			return
		}

		token, err := svc.Authenticate(c.Request.Context(), value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "token lookup failed"})
			return
		}
		if token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(TokenKey, token)
		c.Next()
	}
}

// TokenFromContext returns the authenticated token stored by
// RequireAPIToken, or nil.
func TokenFromContext(c *gin.Context) *auth.Token {
	v, ok := c.Get(TokenKey)
	if !ok {
		return nil
	}
	t, _ := v.(*auth.Token)
	return t
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
