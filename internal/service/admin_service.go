package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/repository"
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrForbidden         = errors.New("forbidden")
	ErrCannotDeleteSelf  = errors.New("cannot delete own account")
)

// AdminService implementa la gestion de usuarios para administradores.
type AdminService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewAdminService(logger *zap.Logger, users repository.UserRepository) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{logger: logger, users: users}
}

type UserPage struct {
	Users   []domain.User `json:"users"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// UpdateAccessInput trae los cambios pedidos; nil significa sin cambio.
type UpdateAccessInput struct {
	Role        *string
	Permissions *[]string
}

func (s *AdminService) List(ctx context.Context, filter repository.UserFilter) (UserPage, error) {
	filter = filter.Normalized()
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	return UserPage{Users: users, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

func (s *AdminService) Get(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateAccess cambia rol y permisos explicitos. Cambiar el rol exige
// roles.manage. Solo super_admin puede otorgar super_admin o tocar a otro
// super_admin. Nadie puede otorgar un permiso que no tiene.
func (s *AdminService) UpdateAccess(ctx context.Context, actor Actor, id int64, input UpdateAccessInput) (domain.User, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if target.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return domain.User{}, ErrForbidden
	}

	role := target.Role
	if input.Role != nil {
		parsed, ok := domain.ParseRole(*input.Role)
		if !ok {
			return domain.User{}, ErrInvalidRole
		}
		if parsed != target.Role && !actor.Can(domain.PermissionManageRoles) {
			return domain.User{}, ErrForbidden
		}
		if parsed == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
			return domain.User{}, ErrForbidden
		}
		role = parsed
	}

	perms := target.Permissions
	if input.Permissions != nil {
		perms = make([]domain.Permission, 0, len(*input.Permissions))
		for _, raw := range *input.Permissions {
			p := domain.Permission(raw)
			if !p.IsValid() {
				return domain.User{}, ErrInvalidPermission
			}
			if !actor.Can(p) {
				return domain.User{}, ErrForbidden
			}
			perms = append(perms, p)
		}
		perms = domain.ParsePermissions(domain.PermissionStrings(perms))
	}

	updated, err := s.users.UpdateAccess(ctx, id, role, perms)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update access: %w", err)
	}
	s.logger.Info("user access updated",
		zap.Int64("actor_id", actor.UserID),
		zap.Int64("user_id", id),
		zap.String("role", string(role)),
		zap.Strings("permissions", domain.PermissionStrings(perms)),
	)
	return updated, nil
}

func (s *AdminService) Delete(ctx context.Context, actor Actor, id int64) error {
	if actor.UserID == id {
		return ErrCannotDeleteSelf
	}
	if !actor.Can(domain.PermissionDeleteUsers) {
		return ErrForbidden
	}
	target, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return ErrForbidden
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.Int64("actor_id", actor.UserID), zap.Int64("user_id", id))
	return nil
}
