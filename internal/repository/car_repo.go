package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diecast-collector/internal/domain"
)

// CarRepository expone lecturas del inventario para el motor de alertas
// y el marcado de entregas. El CRUD completo del tracker vive fuera.
type CarRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.DiecastCar, error)
	ListUndeliveredByUser(ctx context.Context, userID string) ([]domain.DiecastCar, error)
	ListUserIDsWithPending(ctx context.Context) ([]string, error)
	MarkDelivered(ctx context.Context, id, userID string, deliveredAt time.Time) error
}

// PgCarRepository implementa CarRepository usando pgxpool.
type PgCarRepository struct {
	pool *pgxpool.Pool
}

func NewPgCarRepository(pool *pgxpool.Pool) *PgCarRepository {
	return &PgCarRepository{pool: pool}
}

const carColumns = `id, user_id, model_name, manufacturer, price, delivery_due_date, delivered_date, status, created_at`

func (r *PgCarRepository) ListByUser(ctx context.Context, userID string) ([]domain.DiecastCar, error) {
	const query = `SELECT ` + carColumns + ` FROM diecast_cars WHERE user_id = $1 ORDER BY delivery_due_date`
	return r.list(ctx, query, userID)
}

func (r *PgCarRepository) ListUndeliveredByUser(ctx context.Context, userID string) ([]domain.DiecastCar, error) {
	const query = `
		SELECT ` + carColumns + `
		FROM diecast_cars
		WHERE user_id = $1 AND delivered_date IS NULL
		ORDER BY delivery_due_date
	`
	return r.list(ctx, query, userID)
}

func (r *PgCarRepository) ListUserIDsWithPending(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM diecast_cars WHERE delivered_date IS NULL`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgCarRepository) MarkDelivered(ctx context.Context, id, userID string, deliveredAt time.Time) error {
	const query = `
		UPDATE diecast_cars
		SET delivered_date = $3, status = 'Delivered'
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, userID, deliveredAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCarRepository) list(ctx context.Context, query string, args ...any) ([]domain.DiecastCar, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []domain.DiecastCar
	for rows.Next() {
		var c domain.DiecastCar
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.ModelName,
			&c.Manufacturer,
			&c.Price,
			&c.DeliveryDueDate,
			&c.DeliveredDate,
			&c.Status,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}
