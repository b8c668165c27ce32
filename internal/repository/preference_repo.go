package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diecast-collector/internal/domain"
)

// PreferenceRepository define el contrato de persistencia para
// preferencias de notificación.
type PreferenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs domain.NotificationPreferences) error
}

// PgPreferenceRepository implementa PreferenceRepository usando pgxpool.
type PgPreferenceRepository struct {
	pool *pgxpool.Pool
}

func NewPgPreferenceRepository(pool *pgxpool.Pool) *PgPreferenceRepository {
	return &PgPreferenceRepository{pool: pool}
}

func (r *PgPreferenceRepository) GetByUserID(ctx context.Context, userID string) (domain.NotificationPreferences, error) {
	const query = `
		SELECT user_id, email_overdue_alerts, email_upcoming_alerts, email_daily_summary, alert_days_before_delivery, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`
	var p domain.NotificationPreferences
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.EmailOverdueAlerts,
		&p.EmailUpcomingAlerts,
		&p.EmailDailySummary,
		&p.AlertDaysBeforeDelivery,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotificationPreferences{}, err
	}
	return p, err
}

func (r *PgPreferenceRepository) Upsert(ctx context.Context, prefs domain.NotificationPreferences) error {
	const query = `
		INSERT INTO notification_preferences (user_id, email_overdue_alerts, email_upcoming_alerts, email_daily_summary, alert_days_before_delivery, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE SET
			email_overdue_alerts = EXCLUDED.email_overdue_alerts,
			email_upcoming_alerts = EXCLUDED.email_upcoming_alerts,
			email_daily_summary = EXCLUDED.email_daily_summary,
			alert_days_before_delivery = EXCLUDED.alert_days_before_delivery,
			updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query,
		prefs.UserID,
		prefs.EmailOverdueAlerts,
		prefs.EmailUpcomingAlerts,
		prefs.EmailDailySummary,
		prefs.AlertDaysBeforeDelivery,
	)
	return err
}
