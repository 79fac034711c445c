package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"auth-admin/internal/domain"
	"auth-admin/internal/service"
)

const authClaimsKey = "auth_claims"

// AccessTokenParser valida access tokens.
type AccessTokenParser interface {
	ParseAccessToken(token string) (service.Claims, error)
}

// JWTAuthMiddleware valida JWT access tokens y guarda claims en el contexto.
func JWTAuthMiddleware(jwtSvc AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			abortWithOutcome(c, domain.Failed(domain.CodeSystemError, ""))
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			abortWithOutcome(c, domain.Failed(domain.CodeUnauthenticated, ""))
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			abortWithOutcome(c, domain.Failed(domain.CodeUnauthenticated, ""))
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
