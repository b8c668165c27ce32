package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diecast-collector/internal/domain"
)

// TokenRepository define el contrato de persistencia para tokens de
// verificación de email.
type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	GetByValue(ctx context.Context, value string) (domain.VerificationToken, error)
	// Consume marca el token como usado en una sola sentencia; devuelve
	// pgx.ErrNoRows si no existe fila sin usar y sin expirar.
	Consume(ctx context.Context, value string, now time.Time) (domain.VerificationToken, error)
	InvalidateForUser(ctx context.Context, userID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// PgTokenRepository implementa TokenRepository usando pgxpool.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

func (r *PgTokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	const query = `
		INSERT INTO verification_tokens (token, user_id, issued_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		token.Value,
		token.UserID,
		token.IssuedAt,
		token.ExpiresAt,
		token.Used,
	)
	return err
}

func (r *PgTokenRepository) GetByValue(ctx context.Context, value string) (domain.VerificationToken, error) {
	const query = `
		SELECT token, user_id, issued_at, expires_at, used
		FROM verification_tokens
		WHERE token = $1
	`
	var t domain.VerificationToken
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&t.Value,
		&t.UserID,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Used,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VerificationToken{}, err
	}
	return t, err
}

// Consume es el check-and-flip atómico: dos consumidores concurrentes
// sobre el mismo token obtienen exactamente un éxito.
func (r *PgTokenRepository) Consume(ctx context.Context, value string, now time.Time) (domain.VerificationToken, error) {
	const query = `
		UPDATE verification_tokens
		SET used = true
		WHERE token = $1 AND used = false AND expires_at > $2
		RETURNING token, user_id, issued_at, expires_at, used
	`
	var t domain.VerificationToken
	err := r.pool.QueryRow(ctx, query, value, now).Scan(
		&t.Value,
		&t.UserID,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Used,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VerificationToken{}, err
	}
	return t, err
}

// InvalidateForUser descarta tokens sin consumir; emitir uno nuevo
// reemplaza lógicamente a los anteriores.
func (r *PgTokenRepository) InvalidateForUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM verification_tokens WHERE user_id = $1 AND used = false`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *PgTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM verification_tokens WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
