package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/repository"
	"auth-admin/internal/service"
)

// AdminHandler expone la gestion de usuarios bajo /api/admin.
type AdminHandler struct {
	logger *zap.Logger
	admin  *service.AdminService
}

func NewAdminHandler(logger *zap.Logger, admin *service.AdminService) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{logger: logger, admin: admin}
}

// ListUsers maneja GET /api/admin/users?page=&per_page=&search=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var req struct {
		Page    int    `form:"page" binding:"omitempty,min=1"`
		PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
		Search  string `form:"search" binding:"max=100"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("invalid list users request", zap.Error(err))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}

	page, err := h.admin.List(c.Request.Context(), repository.UserFilter{
		Search:  req.Search,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		writeFailure(c, domain.CodeSystemError)
		return
	}
	writeAPISuccess(c, http.StatusOK, domain.MsgOK, map[string]any{
		"users":    page.Users,
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

// GetUser maneja GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	user, err := h.admin.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get user failed", err)
		return
	}
	writeOutcome(c, domain.Succeeded(domain.MsgOK, &user, ""), "")
}

// UpdateUser maneja PATCH /api/admin/users/:id.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Role        *string   `json:"role"`
		Permissions *[]string `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.Role == nil && req.Permissions == nil) {
		h.logger.Warn("invalid update user request", zap.Error(err), zap.Int64("user_id", id))
		writeFailure(c, domain.CodeValidationFailed)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.admin.UpdateAccess(c.Request.Context(), actor, id, service.UpdateAccessInput{
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.writeError(c, "update user failed", err)
		return
	}
	writeOutcome(c, domain.Succeeded(domain.MsgUserUpdated, &user, ""), "")
}

// DeleteUser maneja DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.admin.Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, "delete user failed", err)
		return
	}
	writeAPISuccess(c, http.StatusOK, domain.MsgUserDeleted, map[string]any{"id": id})
}

func (h *AdminHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeFailure(c, domain.CodeUserNotFound)
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidPermission):
		writeFailure(c, domain.CodeValidationFailed)
	case errors.Is(err, service.ErrCannotDeleteSelf):
		writeOutcome(c, domain.Failed(domain.CodeForbidden, domain.MsgCannotDeleteSelf), "")
	case errors.Is(err, service.ErrForbidden):
		writeFailure(c, domain.CodeForbidden)
	default:
		h.logger.Error(msg, zap.Error(err))
		writeFailure(c, domain.CodeSystemError)
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeFailure(c, domain.CodeValidationFailed)
		return 0, false
	}
	return id, true
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeFailure(c, domain.CodeUnauthenticated)
		return service.Actor{}, false
	}
	return claims.Actor(), true
}
