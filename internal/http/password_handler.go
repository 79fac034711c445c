package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/response"
	"auth-admin/internal/service"
)

// PasswordResetter cubre el olvido y el reseteo de contrasena.
type PasswordResetter interface {
	Forgot(ctx context.Context, email string) error
	Reset(ctx context.Context, creds domain.ResetCredentials) domain.Outcome
}

// PasswordHandler expone /api/password/* y /password/reset.
type PasswordHandler struct {
	logger      *zap.Logger
	resets      PasswordResetter
	webRedirect string
}

func NewPasswordHandler(logger *zap.Logger, resets PasswordResetter, webRedirect string) *PasswordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordHandler{logger: logger, resets: resets, webRedirect: webRedirect}
}

type resetRequest struct {
	Token                string `json:"token" form:"token" binding:"required"`
	Email                string `json:"email" form:"email" binding:"required,email"`
	Password             string `json:"password" form:"password" binding:"required,strongpassword"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" binding:"required,eqfield=Password"`
}

func (r resetRequest) credentials() domain.ResetCredentials {
	return domain.ResetCredentials{
		Email:                   r.Email,
		NewPassword:             r.Password,
		NewPasswordConfirmation: r.PasswordConfirmation,
		Token:                   r.Token,
	}
}

// Forgot maneja POST /api/password/forgot.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}

	err := h.resets.Forgot(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		writeAPISuccess(c, http.StatusOK, domain.MsgResetLinkSent, map[string]any{"email": req.Email})
	case errors.Is(err, service.ErrInvalidEmail):
		writeFailure(c, domain.CodeValidationFailed)
	case errors.Is(err, service.ErrUserNotFound):
		writeOutcome(c, domain.Failed(domain.CodeUserNotFound, domain.MsgResetUserNotFound), "")
	case errors.Is(err, service.ErrResetThrottled):
		writeFailure(c, domain.CodeRateLimited)
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusServiceUnavailable, response.API(domain.Failed(domain.CodeSystemError, "")))
	default:
		h.logger.Error("forgot password failed", zap.Error(err))
		writeFailure(c, domain.CodeSystemError)
	}
}

// ResetAPI maneja POST /api/password/reset.
func (h *PasswordHandler) ResetAPI(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset request", zap.Error(err), zap.Strings("fields", validationFields(err)))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}
	writeOutcome(c, h.resets.Reset(c.Request.Context(), req.credentials()), "")
}

// ResetWeb maneja POST /password/reset con form o JSON.
func (h *PasswordHandler) ResetWeb(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("invalid web reset request", zap.Error(err), zap.Strings("fields", validationFields(err)))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}
	writeOutcome(c, h.resets.Reset(c.Request.Context(), req.credentials()), h.webRedirect)
}
