package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
)

// UserFinder busca usuarios por id.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// VerificationStore marca el email como verificado. Devuelve true solo si
// esta llamada hizo la transicion.
type VerificationStore interface {
	MarkVerified(ctx context.Context, id int64, at time.Time) (bool, error)
}

// VerificationUsers es lo que EmailVerifier necesita del repositorio.
type VerificationUsers interface {
	UserFinder
	VerificationStore
}

// EmailVerifier valida links de verificacion firmados.
type EmailVerifier struct {
	logger *zap.Logger
	users  VerificationUsers
	signer security.Signer
	hasher security.Hasher
	events EventPublisher
	now    func() time.Time
}

func NewEmailVerifier(logger *zap.Logger, users VerificationUsers, signer security.Signer, hasher security.Hasher, events EventPublisher, now func() time.Time) *EmailVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &EmailVerifier{
		logger: logger,
		users:  users,
		signer: signer,
		hasher: hasher,
		events: events,
		now:    now,
	}
}

// Verify aplica, en orden: busqueda del usuario, ya verificado, firma,
// vencimiento y hash del email. Nunca devuelve error: todo fallo inesperado
// se reporta como link invalido.
func (v *EmailVerifier) Verify(ctx context.Context, creds domain.VerificationCredentials) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("email verification panicked", zap.Any("panic", r), zap.Int64("user_id", creds.UserID))
			out = domain.Failed(domain.CodeInvalidVerificationLink, "")
		}
	}()

	user, err := v.users.GetByID(ctx, creds.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Failed(domain.CodeUserNotFound, domain.MsgUserNotFound)
		}
		v.logger.Error("email verification lookup failed", zap.Error(err), zap.Int64("user_id", creds.UserID))
		return domain.Failed(domain.CodeInvalidVerificationLink, "")
	}

	if user.HasVerifiedEmail() {
		return domain.Succeeded(domain.MsgEmailAlreadyVerified, &user, "")
	}

	expected := signVerification(v.signer, creds.UserID, creds.EmailHash, creds.ExpiresAt)
	if !v.signer.Equal(expected, creds.Signature) {
		return domain.Failed(domain.CodeInvalidVerificationLink, "")
	}

	now := v.now()
	if now.Unix() > creds.ExpiresAt {
		return domain.Failed(domain.CodeInvalidVerificationLink, "")
	}

	if !security.ConstantTimeEqual(v.hasher.Digest(normalizeEmail(user.Email)), creds.EmailHash) {
		return domain.Failed(domain.CodeInvalidVerificationLink, "")
	}

	changed, err := v.users.MarkVerified(ctx, user.ID, now)
	if err != nil {
		v.logger.Error("mark email verified failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return domain.Failed(domain.CodeInvalidVerificationLink, "")
	}

	verifiedAt := now.UTC()
	user.EmailVerifiedAt = &verifiedAt
	if changed {
		publishEvent(ctx, v.logger, v.events, domain.Event{
			Type:       domain.EventUserVerified,
			UserID:     user.ID,
			Email:      user.Email,
			OccurredAt: verifiedAt,
		})
	}
	return domain.Succeeded(domain.MsgEmailVerified, &user, "")
}
