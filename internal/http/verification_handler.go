package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-admin/internal/domain"
)

// EmailVerifier valida links de verificacion firmados.
type EmailVerifier interface {
	Verify(ctx context.Context, creds domain.VerificationCredentials) domain.Outcome
}

// VerificationHandler expone la verificacion de email por API y por web.
type VerificationHandler struct {
	logger      *zap.Logger
	verifier    EmailVerifier
	webRedirect string
}

// NewVerificationHandler crea el handler. webRedirect es el destino que se
// informa al cliente web tras verificar.
func NewVerificationHandler(logger *zap.Logger, verifier EmailVerifier, webRedirect string) *VerificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationHandler{logger: logger, verifier: verifier, webRedirect: webRedirect}
}

// VerifyAPI maneja POST /api/email/verify.
func (h *VerificationHandler) VerifyAPI(c *gin.Context) {
	var req struct {
		ID        int64  `json:"id" binding:"required"`
		Hash      string `json:"hash" binding:"required"`
		Expires   int64  `json:"expires" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify request", zap.Error(err), zap.Strings("fields", validationFields(err)))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}

	out := h.verifier.Verify(c.Request.Context(), domain.VerificationCredentials{
		UserID:    req.ID,
		EmailHash: req.Hash,
		ExpiresAt: req.Expires,
		Signature: req.Signature,
	})
	writeOutcome(c, out, "")
}

// VerifyWeb maneja GET /email/verify/:id/:hash?expires=&signature=. Parametros
// mal formados se tratan como link invalido.
func (h *VerificationHandler) VerifyWeb(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeFailure(c, domain.CodeInvalidVerificationLink)
		return
	}
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		writeFailure(c, domain.CodeInvalidVerificationLink)
		return
	}
	signature := c.Query("signature")
	if signature == "" {
		writeFailure(c, domain.CodeInvalidVerificationLink)
		return
	}

	out := h.verifier.Verify(c.Request.Context(), domain.VerificationCredentials{
		UserID:    id,
		EmailHash: c.Param("hash"),
		ExpiresAt: expires,
		Signature: signature,
	})
	writeOutcome(c, out, h.webRedirect)
}
