package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/response"
	"auth-admin/internal/service"
)

// UserHandler mantiene dependencias para endpoints de cuenta.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

// Register maneja POST /api/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username             string `json:"username" binding:"required,min=3,max=50"`
		Email                string `json:"email" binding:"required,email"`
		Password             string `json:"password" binding:"required,strongpassword"`
		PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err), zap.Strings("fields", validationFields(err)))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			writeFailure(c, domain.CodeEmailTaken)
		case errors.Is(err, service.ErrInvalidEmail):
			writeFailure(c, domain.CodeValidationFailed)
		default:
			h.logger.Error("register failed", zap.Error(err))
			writeFailure(c, domain.CodeSystemError)
		}
		return
	}

	tokens, err := h.issueTokens(c, user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err), zap.Int64("user_id", user.ID))
		writeFailure(c, domain.CodeSystemError)
		return
	}
	writeAPISuccess(c, http.StatusCreated, domain.MsgRegistered, map[string]any{"user": user, "tokens": tokens})
}

// Login maneja POST /api/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeFailure(c, domain.CodeInvalidCredentials)
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeFailure(c, domain.CodeSystemError)
		return
	}

	tokens, err := h.issueTokens(c, user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err), zap.Int64("user_id", user.ID))
		writeFailure(c, domain.CodeSystemError)
		return
	}
	writeAPISuccess(c, http.StatusOK, domain.MsgLoggedIn, map[string]any{"user": user, "tokens": tokens})
}

// RefreshToken maneja POST /api/token/refresh. El refresh token usado queda
// revocado y se emite un par nuevo con el rol vigente del usuario.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}
	if h.jwtServ == nil {
		writeFailure(c, domain.CodeSystemError)
		return
	}

	ctx := c.Request.Context()
	userID, err := h.jwtServ.ConsumeRefresh(ctx, req.RefreshToken)
	if err != nil {
		writeFailure(c, domain.CodeUnauthenticated)
		return
	}
	user, err := h.userServ.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeFailure(c, domain.CodeUnauthenticated)
			return
		}
		h.logger.Error("refresh load user failed", zap.Error(err), zap.Int64("user_id", userID))
		writeFailure(c, domain.CodeSystemError)
		return
	}
	tokens, err := h.issueTokens(c, user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err), zap.Int64("user_id", user.ID))
		writeFailure(c, domain.CodeSystemError)
		return
	}
	writeAPISuccess(c, http.StatusOK, domain.MsgTokenRefreshed, map[string]any{"tokens": tokens})
}

// Logout maneja POST /api/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}
	if h.jwtServ == nil {
		writeFailure(c, domain.CodeSystemError)
		return
	}
	if err := h.jwtServ.RevokeRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		h.logger.Debug("revoke refresh failed", zap.Error(err))
	}
	writeAPISuccess(c, http.StatusOK, domain.MsgLoggedOut, nil)
}

// Me maneja GET /api/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	writeOutcome(c, domain.Succeeded(domain.MsgOK, &user, ""), "")
}

// ResendVerification maneja POST /api/email/verification-notification.
func (h *UserHandler) ResendVerification(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeFailure(c, domain.CodeUnauthenticated)
		return
	}

	user, alreadyVerified, err := h.userServ.ResendVerification(c.Request.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeFailure(c, domain.CodeUserNotFound)
		case errors.Is(err, service.ErrRateLimited):
			writeFailure(c, domain.CodeRateLimited)
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, response.API(domain.Failed(domain.CodeSystemError, "")))
		default:
			h.logger.Error("resend verification failed", zap.Error(err), zap.Int64("user_id", claims.UserID))
			writeFailure(c, domain.CodeSystemError)
		}
		return
	}
	if alreadyVerified {
		writeOutcome(c, domain.Succeeded(domain.MsgEmailAlreadyVerified, &user, ""), "")
		return
	}
	writeOutcome(c, domain.Succeeded(domain.MsgVerificationLinkSent, nil, user.Email), "")
}

func (h *UserHandler) currentUser(c *gin.Context) (domain.User, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeFailure(c, domain.CodeUnauthenticated)
		return domain.User{}, false
	}
	user, err := h.userServ.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeFailure(c, domain.CodeUserNotFound)
			return domain.User{}, false
		}
		h.logger.Error("load current user failed", zap.Error(err), zap.Int64("user_id", claims.UserID))
		writeFailure(c, domain.CodeSystemError)
		return domain.User{}, false
	}
	return user, true
}

func (h *UserHandler) issueTokens(c *gin.Context, user domain.User) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errors.New("jwt not configured")
	}
	return h.jwtServ.GeneratePair(c.Request.Context(), user)
}
