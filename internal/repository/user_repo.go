package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-admin/internal/db"
	"auth-admin/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	MarkVerified(ctx context.Context, id int64, at time.Time) (bool, error)
	SetPassword(ctx context.Context, email, digest, rememberToken string) error
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	UpdateAccess(ctx context.Context, id int64, role domain.Role, perms []domain.Permission) (domain.User, error)
	Delete(ctx context.Context, id int64) error
	UpsertAdmin(ctx context.Context, user domain.User) (domain.User, error)
}

// UserFilter pagina y filtra el listado de administracion.
type UserFilter struct {
	Search  string
	Page    int
	PerPage int
}

// Normalized aplica pagina 1, 20 por pagina y un maximo de 100.
func (f UserFilter) Normalized() UserFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// PgUserRepository implementa UserRepository sobre pgx. Si el contexto trae
// una transaccion abierta por db.Transactor, las consultas corren dentro de ella.
type PgUserRepository struct {
	db db.Querier
}

func NewPgUserRepository(q db.Querier) *PgUserRepository {
	return &PgUserRepository{db: q}
}

const userColumns = `id, username, email, password_hash, remember_token, role, permissions, email_verified_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u     domain.User
		role  string
		perms []string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.RememberToken,
		&role,
		&perms,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Permissions = domain.ParsePermissions(perms)
	return u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, remember_token, role, permissions, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	created, err := scanUser(db.Conn(ctx, r.db).QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.RememberToken,
		string(user.Role),
		domain.PermissionStrings(user.Permissions),
		user.EmailVerifiedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.Conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(db.Conn(ctx, r.db).QueryRow(ctx, query, email))
}

func (r *PgUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkVerified marca el email como verificado solo si aun no lo estaba.
// Devuelve true cuando esta llamada hizo la transicion.
func (r *PgUserRepository) MarkVerified(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `
		UPDATE users SET email_verified_at = $2, updated_at = $2
		WHERE id = $1 AND email_verified_at IS NULL
	`
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgUserRepository) SetPassword(ctx context.Context, email, digest, rememberToken string) error {
	const query = `
		UPDATE users SET password_hash = $2, remember_token = $3, updated_at = now()
		WHERE email = $1
	`
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query, email, digest, rememberToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List devuelve una pagina de usuarios y el total que cumple el filtro.
func (r *PgUserRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	filter = filter.Normalized()
	conn := db.Conn(ctx, r.db)

	where := ""
	args := []any{}
	if filter.Search != "" {
		where = ` WHERE username ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limitPos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY id LIMIT $%d OFFSET $%d`,
		userColumns, where, limitPos, limitPos+1)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, filter.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *PgUserRepository) UpdateAccess(ctx context.Context, id int64, role domain.Role, perms []domain.Permission) (domain.User, error) {
	query := `
		UPDATE users SET role = $2, permissions = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(db.Conn(ctx, r.db).QueryRow(ctx, query, id, string(role), domain.PermissionStrings(perms)))
}

func (r *PgUserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAdmin crea el usuario o, si el email ya existe, lo promueve con el rol
// y la contrasena dados.
func (r *PgUserRepository) UpsertAdmin(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, remember_token, role, permissions, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			permissions = EXCLUDED.permissions,
			email_verified_at = COALESCE(users.email_verified_at, EXCLUDED.email_verified_at),
			updated_at = now()
		RETURNING ` + userColumns
	return scanUser(db.Conn(ctx, r.db).QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.RememberToken,
		string(user.Role),
		domain.PermissionStrings(user.Permissions),
		user.EmailVerifiedAt,
	))
}
