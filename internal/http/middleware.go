package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"auth-admin/internal/domain"
	"auth-admin/internal/response"
	"auth-admin/internal/service"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	apiPrefix       = "/api/"
)

// requestIDMiddleware reutiliza el X-Request-ID entrante o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// RateLimitMiddleware limita por ruta e ip. Sin limiter no hace nada.
func RateLimitMiddleware(limiter service.RateLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(scope + ":" + c.ClientIP()) {
			c.Header("Retry-After", "60")
			abortWithOutcome(c, domain.Failed(domain.CodeRateLimited, ""))
			return
		}
		c.Next()
	}
}

// RequirePermission exige que el usuario autenticado tenga el permiso. Debe
// ir despues de JWTAuthMiddleware.
func RequirePermission(p domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			abortWithOutcome(c, domain.Failed(domain.CodeUnauthenticated, ""))
			return
		}
		if !claims.Actor().Can(p) {
			abortWithOutcome(c, domain.Failed(domain.CodeForbidden, ""))
			return
		}
		c.Next()
	}
}

func isAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, apiPrefix)
}

// writeOutcome responde en el formato que corresponde a la ruta.
func writeOutcome(c *gin.Context, o domain.Outcome, redirect string) {
	status := response.HTTPStatus(o)
	if isAPIRequest(c) {
		c.JSON(status, response.API(o))
		return
	}
	c.JSON(status, response.Web(o, redirect))
}

func abortWithOutcome(c *gin.Context, o domain.Outcome) {
	writeOutcome(c, o, "")
	c.Abort()
}

// writeAPISuccess responde un exito de la API con datos arbitrarios.
func writeAPISuccess(c *gin.Context, status int, message string, data map[string]any) {
	c.JSON(status, response.APIPayload{
		Status:  response.StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// writeFailure responde un fallo tipado con el mensaje del catalogo.
func writeFailure(c *gin.Context, code domain.ErrorCode) {
	writeOutcome(c, domain.Failed(code, ""), "")
}
