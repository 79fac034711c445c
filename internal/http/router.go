package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"auth-admin/internal/domain"
	"auth-admin/internal/service"
)

// RouterConfig agrupa lo transversal a todas las rutas.
type RouterConfig struct {
	AllowedOrigins []string
	Limiter        service.RateLimiter
	JWT            *service.JWTService
}

// Handlers agrupa los handlers montados por NewRouter.
type Handlers struct {
	User         *UserHandler
	Verification *VerificationHandler
	Password     *PasswordHandler
	Admin        *AdminHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, cfg RouterConfig, h Handlers) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	RegisterValidators()

	r := gin.New()
	r.HandleMethodNotAllowed = true

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(
		requestIDMiddleware(),
		ginzap.GinzapWithConfig(logger, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Context: func(c *gin.Context) []zapcore.Field {
				var fields []zapcore.Field
				if v := c.GetString(requestIDKey); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}
				if claims, ok := GetAuthClaims(c); ok {
					fields = append(fields, zap.Int64("user_id", claims.UserID))
				}
				return fields
			},
		}),
		ginzap.RecoveryWithZap(logger, true),
		jsonContentTypeMiddleware(),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	limit := func(scope string) gin.HandlerFunc {
		return RateLimitMiddleware(cfg.Limiter, scope)
	}
	var parser AccessTokenParser
	if cfg.JWT != nil {
		parser = cfg.JWT
	}
	auth := JWTAuthMiddleware(parser)

	api := r.Group("/api")

	if h.Verification != nil {
		api.POST("/email/verify", limit("verify"), h.Verification.VerifyAPI)
		r.GET("/email/verify/:id/:hash", limit("verify"), h.Verification.VerifyWeb)
	}

	if h.Password != nil {
		api.POST("/password/forgot", limit("forgot"), h.Password.Forgot)
		api.POST("/password/reset", limit("reset"), h.Password.ResetAPI)
		r.POST("/password/reset", limit("reset"), h.Password.ResetWeb)
	}

	if h.User != nil {
		api.POST("/register", h.User.Register)
		api.POST("/login", limit("login"), h.User.Login)
		api.POST("/token/refresh", h.User.RefreshToken)
		api.POST("/logout", h.User.Logout)
		api.GET("/me", auth, h.User.Me)
		api.POST("/email/verification-notification", auth, limit("resend"), h.User.ResendVerification)
	}

	if h.Admin != nil {
		view := RequirePermission(domain.PermissionViewUsers)
		manage := RequirePermission(domain.PermissionManageUsers)
		admin := api.Group("/admin/users", auth)
		admin.GET("", view, h.Admin.ListUsers)
		admin.GET("/:id", view, h.Admin.GetUser)
		admin.PATCH("/:id", manage, h.Admin.UpdateUser)
		admin.DELETE("/:id", manage, h.Admin.DeleteUser)
	}

	return r
}
