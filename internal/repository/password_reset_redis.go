package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-admin/internal/domain"
	"auth-admin/internal/security"
)

const (
	resetKeyPrefix      = "password_reset:"
	resetHeldPrefix     = "password_reset_held:"
	resetConsumeRetries = 4
	resetRestoreWindow  = time.Minute
)

var ErrResetContention = errors.New("reset token contention, retries exhausted")

// EmailLookup responde si existe un usuario con ese email.
type EmailLookup interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type resetRecord struct {
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisPasswordResetStore guarda los tokens de reseteo en Redis con TTL.
// El consumo usa WATCH/MULTI sobre la clave del email. Redis no participa de
// la transaccion de Postgres, asi que el registro consumido queda retenido
// durante resetRestoreWindow para que Restore lo reponga si el cambio de
// contrasena no llega a confirmarse.
type RedisPasswordResetStore struct {
	client   redis.UniversalClient
	users    EmailLookup
	ttl      time.Duration
	throttle time.Duration
	prefix   string
}

func NewRedisPasswordResetStore(client redis.UniversalClient, users EmailLookup, ttl, throttle time.Duration) *RedisPasswordResetStore {
	return &RedisPasswordResetStore{
		client:   client,
		users:    users,
		ttl:      ttl,
		throttle: throttle,
		prefix:   resetKeyPrefix,
	}
}

func (s *RedisPasswordResetStore) key(email string) string {
	return s.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (s *RedisPasswordResetStore) heldKey(email string) string {
	return resetHeldPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (s *RedisPasswordResetStore) read(ctx context.Context, cmd stringGetter, key string) (resetRecord, bool, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return resetRecord{}, false, nil
	}
	if err != nil {
		return resetRecord{}, false, err
	}
	var rec resetRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return resetRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisPasswordResetStore) Create(ctx context.Context, email, token string, now time.Time) error {
	key := s.key(email)

	if s.throttle > 0 {
		rec, ok, err := s.read(ctx, s.client, key)
		if err != nil {
			return fmt.Errorf("read reset token: %w", err)
		}
		if ok && rec.CreatedAt.Add(s.throttle).After(now) {
			return ErrThrottled
		}
	}

	payload, err := json.Marshal(resetRecord{
		TokenHash: security.HashToken(token),
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// ValidateAndConsume borra la clave solo si el token coincide. Si otro
// cliente toca la clave entre WATCH y EXEC se reintenta; el perdedor ve la
// clave ausente y recibe TokenInvalid.
func (s *RedisPasswordResetStore) ValidateAndConsume(ctx context.Context, email, token string, now time.Time) (domain.TokenVerdict, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return domain.TokenInvalid, fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return domain.TokenUserNotFound, nil
	}

	key, held := s.key(email), s.heldKey(email)
	wanted := security.HashToken(token)
	verdict := domain.TokenInvalid

	txf := func(tx *redis.Tx) error {
		verdict = domain.TokenInvalid

		rec, ok, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if !ok || !security.ConstantTimeEqual(rec.TokenHash, wanted) {
			return nil
		}

		expired := rec.CreatedAt.Add(s.ttl).Before(now)
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if !expired {
				pipe.Set(ctx, held, payload, resetRestoreWindow)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !expired {
			verdict = domain.TokenValid
		}
		return nil
	}

	for i := 0; i < resetConsumeRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return verdict, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.TokenInvalid, fmt.Errorf("consume reset token: %w", err)
	}
	return domain.TokenInvalid, ErrResetContention
}

// Restore repone el ultimo token consumido para email. No pisa un token
// emitido despues del consumo ni revive uno ya vencido.
func (s *RedisPasswordResetStore) Restore(ctx context.Context, email string, now time.Time) error {
	key, held := s.key(email), s.heldKey(email)

	rec, ok, err := s.read(ctx, s.client, held)
	if err != nil {
		return fmt.Errorf("read held reset token: %w", err)
	}
	if !ok {
		return nil
	}
	if remaining := rec.CreatedAt.Add(s.ttl).Sub(now); remaining > 0 {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.client.SetNX(ctx, key, payload, remaining).Err(); err != nil {
			return fmt.Errorf("restore reset token: %w", err)
		}
	}
	return s.client.Del(ctx, held).Err()
}

func (s *RedisPasswordResetStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email)).Err()
}
