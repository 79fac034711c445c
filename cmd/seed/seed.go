package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"auth-admin/internal/domain"
	"auth-admin/internal/security"
)

type adminUpserter interface {
	UpsertAdmin(ctx context.Context, user domain.User) (domain.User, error)
}

type seedInput struct {
	Username string
	Email    string
	Password string
}

var (
	errSeedEmailRequired = errors.New("SEED_ADMIN_EMAIL is required")
	errSeedWeakPassword  = errors.New("SEED_ADMIN_PASSWORD does not meet the password policy")
)

// seedAdmin crea o promueve un super_admin con el email ya verificado.
func seedAdmin(ctx context.Context, users adminUpserter, hasher security.PasswordHasher, in seedInput, now time.Time) (domain.User, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(in.Email))
	if emailAddr == "" {
		return domain.User{}, errSeedEmailRequired
	}
	if !security.IsStrongPassword(in.Password) {
		return domain.User{}, errSeedWeakPassword
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = "admin"
	}

	digest, err := hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	remember, err := security.NewRememberToken()
	if err != nil {
		return domain.User{}, err
	}
	return users.UpsertAdmin(ctx, domain.User{
		Username:        username,
		Email:           emailAddr,
		Role:            domain.RoleSuperAdmin,
		PasswordHash:    digest,
		RememberToken:   remember,
		EmailVerifiedAt: &now,
	})
}
