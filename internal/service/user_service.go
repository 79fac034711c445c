package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"auth-admin/internal/domain"
	"auth-admin/internal/email"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
)

// UserService coordina registro, login y reenvio de verificacion.
type UserService struct {
	logger        *zap.Logger
	users         repository.UserRepository
	hasher        security.PasswordHasher
	links         *LinkBuilder
	emailSender   email.Sender
	events        EventPublisher
	resendLimiter RateLimiter
	now           func() time.Time
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	hasher security.PasswordHasher,
	links *LinkBuilder,
	emailSender email.Sender,
	events EventPublisher,
	resendLimiter RateLimiter,
	now func() time.Time,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resendLimiter == nil {
		resendLimiter = NewMemoryRateLimiter(time.Minute, 6)
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		logger:        logger,
		users:         users,
		hasher:        hasher,
		links:         links,
		emailSender:   emailSender,
		events:        events,
		resendLimiter: resendLimiter,
		now:           now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrResetThrottled     = errors.New("password reset requested too recently")
)

// Register crea el usuario con rol user y le envia el link de verificacion.
// Si el correo no sale, el registro se mantiene y el usuario puede pedir reenvio.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	remember, err := security.RandomString(rememberTokenLength)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.User{
		Username:      strings.TrimSpace(input.Username),
		Email:         emailAddr,
		Role:          domain.RoleUser,
		PasswordHash:  digest,
		RememberToken: remember,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Warn("send verification link failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	publishEvent(ctx, s.logger, s.events, domain.Event{
		Type:       domain.EventUserRegistered,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: s.now().UTC(),
	})
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ResendVerification reenvia el link si el email sigue sin verificar. El
// segundo valor indica que ya estaba verificado y no se envio nada.
func (s *UserService) ResendVerification(ctx context.Context, id int64) (domain.User, bool, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, false, err
	}
	if user.HasVerifiedEmail() {
		return user, true, nil
	}
	if !s.resendLimiter.Allow(fmt.Sprintf("resend:%d", user.ID)) {
		return domain.User{}, false, ErrRateLimited
	}
	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Warn("resend verification link failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return domain.User{}, false, ErrEmailSendFailure
	}
	return user, false, nil
}

func (s *UserService) sendVerification(ctx context.Context, user domain.User) error {
	if s.emailSender == nil || s.links == nil {
		return ErrEmailSendFailure
	}
	link, expiresAt := s.links.VerificationURL(user, s.now())
	return s.emailSender.SendVerificationLink(ctx, user.Email, link, expiresAt)
}
