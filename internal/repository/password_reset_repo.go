package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-admin/internal/db"
	"auth-admin/internal/domain"
	"auth-admin/internal/security"
)

// PgPasswordResetRepository guarda un token de reseteo por email. Solo se
// persiste el SHA-256 del token.
type PgPasswordResetRepository struct {
	db       db.Querier
	ttl      time.Duration
	throttle time.Duration
}

func NewPgPasswordResetRepository(q db.Querier, ttl, throttle time.Duration) *PgPasswordResetRepository {
	return &PgPasswordResetRepository{db: q, ttl: ttl, throttle: throttle}
}

// Create reemplaza el token vigente del email. Devuelve ErrThrottled si el
// anterior se emitio hace menos que el intervalo de throttle.
func (r *PgPasswordResetRepository) Create(ctx context.Context, email, token string, now time.Time) error {
	conn := db.Conn(ctx, r.db)

	if r.throttle > 0 {
		var createdAt time.Time
		err := conn.QueryRow(ctx,
			`SELECT created_at FROM password_reset_tokens WHERE email = $1`, email,
		).Scan(&createdAt)
		switch {
		case err == nil:
			if createdAt.Add(r.throttle).After(now) {
				return ErrThrottled
			}
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return fmt.Errorf("read reset token: %w", err)
		}
	}

	const upsert = `
		INSERT INTO password_reset_tokens (email, token_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at
	`
	if _, err := conn.Exec(ctx, upsert, email, security.HashToken(token), now); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// ValidateAndConsume bloquea la fila del token con FOR UPDATE. Debe llamarse
// dentro de db.Transactor.WithinTx para que el consumo y el cambio de
// contrasena sean atomicos; un competidor concurrente queda bloqueado y
// luego no encuentra la fila.
func (r *PgPasswordResetRepository) ValidateAndConsume(ctx context.Context, email, token string, now time.Time) (domain.TokenVerdict, error) {
	conn := db.Conn(ctx, r.db)

	var exists bool
	if err := conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists); err != nil {
		return domain.TokenInvalid, fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return domain.TokenUserNotFound, nil
	}

	var (
		tokenHash string
		createdAt time.Time
	)
	err := conn.QueryRow(ctx,
		`SELECT token_hash, created_at FROM password_reset_tokens WHERE email = $1 FOR UPDATE`, email,
	).Scan(&tokenHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TokenInvalid, nil
	}
	if err != nil {
		return domain.TokenInvalid, fmt.Errorf("lock reset token: %w", err)
	}

	if !security.ConstantTimeEqual(tokenHash, security.HashToken(token)) {
		return domain.TokenInvalid, nil
	}

	tag, err := conn.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, email)
	if err != nil {
		return domain.TokenInvalid, fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.TokenInvalid, nil
	}
	if createdAt.Add(r.ttl).Before(now) {
		return domain.TokenInvalid, nil
	}
	return domain.TokenValid, nil
}

func (r *PgPasswordResetRepository) Delete(ctx context.Context, email string) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, email)
	return err
}

// PruneExpired borra los tokens vencidos y devuelve cuantos elimino.
func (r *PgPasswordResetRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE created_at < $1`, now.Add(-r.ttl),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
