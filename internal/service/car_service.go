package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/repository"
)

var ErrCarNotFound = errors.New("car not found")

// CarService expone la lectura del inventario propio y el marcado de
// entregas recibidas.
type CarService struct {
	logger *zap.Logger
	cars   repository.CarRepository
}

func NewCarService(logger *zap.Logger, cars repository.CarRepository) *CarService {
	return &CarService{logger: logger, cars: cars}
}

func (s *CarService) ListForUser(ctx context.Context, userID string) ([]domain.DiecastCar, error) {
	return s.cars.ListByUser(ctx, userID)
}

// MarkDelivered registra la recepción; solo sobre autos del propio usuario.
func (s *CarService) MarkDelivered(ctx context.Context, carID, userID string) error {
	err := s.cars.MarkDelivered(ctx, carID, userID, time.Now().UTC())
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCarNotFound
	}
	if err == nil && s.logger != nil {
		s.logger.Info("car delivered", zap.String("car_id", carID), zap.String("user_id", userID))
	}
	return err
}
