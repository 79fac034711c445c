package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/email"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
)

const rememberTokenLength = 60

// ResetTokenStore emite y consume tokens de reseteo. ValidateAndConsume es
// atomico: ante llamadas concurrentes con el mismo token, solo una recibe
// TokenValid.
type ResetTokenStore interface {
	Create(ctx context.Context, email, token string, now time.Time) error
	ValidateAndConsume(ctx context.Context, email, token string, now time.Time) (domain.TokenVerdict, error)
}

// ResetTokenRestorer lo implementan los stores cuyo consumo no se deshace con
// el rollback de la transaccion. Restore repone el token consumido.
type ResetTokenRestorer interface {
	Restore(ctx context.Context, email string, now time.Time) error
}

// PasswordSetter reemplaza el digest de la contrasena y el remember token.
type PasswordSetter interface {
	SetPassword(ctx context.Context, email, digest, rememberToken string) error
}

// ResetUsers es lo que PasswordResetService necesita del repositorio.
type ResetUsers interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	PasswordSetter
}

// TxRunner ejecuta fn dentro de una transaccion. Si fn falla se hace rollback.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PasswordResetService implementa el olvido y el reseteo de contrasena.
type PasswordResetService struct {
	logger *zap.Logger
	tx     TxRunner
	tokens ResetTokenStore
	users  ResetUsers
	hasher security.PasswordHasher
	links  *LinkBuilder
	sender email.Sender
	events EventPublisher
	now    func() time.Time
}

func NewPasswordResetService(
	logger *zap.Logger,
	tx TxRunner,
	tokens ResetTokenStore,
	users ResetUsers,
	hasher security.PasswordHasher,
	links *LinkBuilder,
	sender email.Sender,
	events EventPublisher,
	now func() time.Time,
) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &PasswordResetService{
		logger: logger,
		tx:     tx,
		tokens: tokens,
		users:  users,
		hasher: hasher,
		links:  links,
		sender: sender,
		events: events,
		now:    now,
	}
}

// Forgot emite un token nuevo y envia el link de reseteo por correo.
func (s *PasswordResetService) Forgot(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, err := security.RandomHex(32)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.tokens.Create(ctx, user.Email, token, now); err != nil {
		if errors.Is(err, repository.ErrThrottled) {
			return ErrResetThrottled
		}
		return err
	}

	if s.sender == nil {
		return ErrEmailSendFailure
	}
	link, expiresAt := s.links.ResetURL(token, user.Email, now)
	if err := s.sender.SendPasswordReset(ctx, user.Email, link, expiresAt); err != nil {
		s.logger.Warn("send password reset failed", zap.Error(err), zap.String("email", user.Email))
		return ErrEmailSendFailure
	}
	return nil
}

// Reset consume el token y cambia la contrasena en una sola transaccion.
// Nunca devuelve error: fallos inesperados se reportan como token invalido.
func (s *PasswordResetService) Reset(ctx context.Context, creds domain.ResetCredentials) (out domain.Outcome) {
	emailAddr := normalizeEmail(creds.Email)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("password reset panicked", zap.Any("panic", r), zap.String("email", emailAddr))
			out = domain.Failed(domain.CodeInvalidResetToken, "")
		}
	}()

	if emailAddr == "" || creds.Token == "" || creds.NewPassword == "" || creds.NewPassword != creds.NewPasswordConfirmation {
		return domain.Failed(domain.CodeValidationFailed, "")
	}

	digest, err := s.hasher.Hash(creds.NewPassword)
	if err != nil {
		s.logger.Error("hash new password failed", zap.Error(err))
		return domain.Failed(domain.CodeInvalidResetToken, "")
	}
	remember, err := security.RandomString(rememberTokenLength)
	if err != nil {
		s.logger.Error("generate remember token failed", zap.Error(err))
		return domain.Failed(domain.CodeInvalidResetToken, "")
	}

	now := s.now()
	verdict := domain.TokenInvalid
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := s.tokens.ValidateAndConsume(ctx, emailAddr, creds.Token, now)
		if err != nil {
			return err
		}
		verdict = v
		if v != domain.TokenValid {
			return nil
		}
		return s.users.SetPassword(ctx, emailAddr, digest, remember)
	})
	if err != nil {
		s.logger.Error("password reset failed", zap.Error(err), zap.String("email", emailAddr))
		if verdict == domain.TokenValid {
			s.restoreToken(ctx, emailAddr, now)
		}
		return domain.Failed(domain.CodeInvalidResetToken, "")
	}

	switch verdict {
	case domain.TokenValid:
		publishEvent(ctx, s.logger, s.events, domain.Event{
			Type:       domain.EventUserPasswordReset,
			Email:      emailAddr,
			OccurredAt: now.UTC(),
		})
		return domain.Succeeded(domain.MsgPasswordReset, nil, emailAddr)
	case domain.TokenUserNotFound:
		return domain.Failed(domain.CodeUserNotFound, domain.MsgResetUserNotFound)
	default:
		return domain.Failed(domain.CodeInvalidResetToken, domain.MsgInvalidResetToken)
	}
}

func (s *PasswordResetService) restoreToken(ctx context.Context, emailAddr string, now time.Time) {
	restorer, ok := s.tokens.(ResetTokenRestorer)
	if !ok {
		return
	}
	if err := restorer.Restore(ctx, emailAddr, now); err != nil {
		s.logger.Warn("restore reset token failed", zap.Error(err), zap.String("email", emailAddr))
	}
}
