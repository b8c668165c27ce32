package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diecast-collector/internal/domain"
)

// SubscriptionRepository define el contrato del libro mayor de
// suscripciones: una fila corriente por usuario.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.Subscription, error)
	// ApplyPayment registra la referencia de pago y extiende la ventana en
	// una transacción; devuelve applied=false si la orden ya estaba
	// aplicada (confirmación duplicada, resuelta como éxito sin efecto).
	ApplyPayment(ctx context.Context, userID, orderID, paymentID string, now time.Time, period time.Duration) (sub domain.Subscription, applied bool, err error)
	SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error
}

// PgSubscriptionRepository implementa SubscriptionRepository usando pgxpool.
type PgSubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSubscriptionRepository(pool *pgxpool.Pool) *PgSubscriptionRepository {
	return &PgSubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, user_id, start_date, end_date, auto_renew, payment_ref, created_at, updated_at`

func (r *PgSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (domain.Subscription, error) {
	const query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return scanSubscription(r.pool.QueryRow(ctx, query, userID))
}

func (r *PgSubscriptionRepository) ApplyPayment(ctx context.Context, userID, orderID, paymentID string, now time.Time, period time.Duration) (domain.Subscription, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.Subscription{}, false, err
	}
	defer tx.Rollback(ctx)

	// La unicidad de order_id hace idempotente la confirmación: un
	// callback duplicado no inserta fila y no vuelve a extender.
	const insertPayment = `
		INSERT INTO subscription_payments (order_id, payment_id, user_id, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insertPayment, orderID, paymentID, userID, now)
	if err != nil {
		return domain.Subscription{}, false, err
	}
	if tag.RowsAffected() == 0 {
		sub, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return domain.Subscription{}, false, err
		}
		return sub, false, nil
	}

	const selectForUpdate = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 FOR UPDATE`
	sub, err := scanSubscription(tx.QueryRow(ctx, selectForUpdate, userID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		sub = domain.Subscription{
			ID:         uuid.NewString(),
			UserID:     userID,
			StartDate:  now,
			EndDate:    now.Add(period),
			AutoRenew:  true,
			PaymentRef: orderID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		const insertSub = `
			INSERT INTO subscriptions (id, user_id, start_date, end_date, auto_renew, payment_ref, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, insertSub,
			sub.ID, sub.UserID, sub.StartDate, sub.EndDate, sub.AutoRenew, sub.PaymentRef, sub.CreatedAt, sub.UpdatedAt,
		); err != nil {
			return domain.Subscription{}, false, err
		}
	case err != nil:
		return domain.Subscription{}, false, err
	default:
		// Renovación: se extiende la fila existente, nunca se acorta ni
		// se duplica.
		sub.EndDate = sub.ExtendedEnd(now, period)
		sub.PaymentRef = orderID
		sub.UpdatedAt = now
		const updateSub = `
			UPDATE subscriptions SET end_date = $2, payment_ref = $3, updated_at = $4 WHERE user_id = $1
		`
		if _, err := tx.Exec(ctx, updateSub, userID, sub.EndDate, sub.PaymentRef, sub.UpdatedAt); err != nil {
			return domain.Subscription{}, false, err
		}
	}

	// active y la fila de suscripción se escriben juntos o no se escriben.
	const activateUser = `UPDATE users SET active = true WHERE id = $1`
	if _, err := tx.Exec(ctx, activateUser, userID); err != nil {
		return domain.Subscription{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Subscription{}, false, err
	}
	return sub, true, nil
}

func (r *PgSubscriptionRepository) SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error {
	const query = `UPDATE subscriptions SET auto_renew = $2, updated_at = now() WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, autoRenew)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartDate,
		&s.EndDate,
		&s.AutoRenew,
		&s.PaymentRef,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, err
	}
	return s, err
}
