package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diecast-collector/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	SetEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.User, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, active, email_verified_at, created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, active, email_verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Active,
		user.EmailVerifiedAt,
		user.CreatedAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *PgUserRepository) SetEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `UPDATE users SET email_verified_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, verifiedAt)
	return err
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ListStale devuelve candidatos del reaper: cuentas nunca activadas, más
// viejas que el corte y sin fila de suscripción.
func (r *PgUserRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.active = false
		  AND u.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.user_id = u.id)
		ORDER BY u.created_at
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteStale borra en una sola sentencia, releyendo la condición de
// "sin suscripción" dentro del DELETE para no pisar un pago concurrente.
func (r *PgUserRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM users u
		WHERE u.active = false
		  AND u.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.user_id = u.id)
	`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Active,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
