package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/repository"
)

const defaultReaperThresholdDays = 7

// SweepCandidate resume una cuenta abandonada para el reporte.
type SweepCandidate struct {
	UserID    string       `json:"user_id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	Stage     domain.Stage `json:"stage"`
	CreatedAt time.Time    `json:"created_at"`
}

// SweepReport es el resumen de una pasada del reaper.
type SweepReport struct {
	ThresholdDays int              `json:"threshold_days"`
	Candidates    []SweepCandidate `json:"candidates"`
	Deleted       int64            `json:"deleted"`
	DryRun        bool             `json:"dry_run"`
}

// ReaperService recicla registros nunca pagados. Misma regla de abandono
// que la expiración de tokens, con la antigüedad del registro como plazo.
type ReaperService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewReaperService(logger *zap.Logger, users repository.UserRepository) *ReaperService {
	return &ReaperService{logger: logger, users: users}
}

// Sweep es idempotente y segura frente a pagos concurrentes: el DELETE
// relee "sin suscripción" dentro de la misma sentencia, así que una
// cuenta cuyo pago ya comprometió nunca se borra. Las cuentas activas
// quedan fuera del criterio sin importar la antigüedad.
func (s *ReaperService) Sweep(ctx context.Context, thresholdDays int, dryRun bool) (SweepReport, error) {
	if thresholdDays <= 0 {
		thresholdDays = defaultReaperThresholdDays
	}
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -thresholdDays)

	stale, err := s.users.ListStale(ctx, cutoff)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{
		ThresholdDays: thresholdDays,
		DryRun:        dryRun,
	}
	for _, u := range stale {
		if !u.AbandonedSince(cutoff) {
			continue
		}
		report.Candidates = append(report.Candidates, SweepCandidate{
			UserID:    u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Stage:     u.LifecycleStage(),
			CreatedAt: u.CreatedAt,
		})
	}

	if dryRun {
		if s.logger != nil {
			s.logger.Info("reaper dry run", zap.Int("candidates", len(report.Candidates)), zap.Int("threshold_days", thresholdDays))
		}
		return report, nil
	}

	deleted, err := s.users.DeleteStale(ctx, cutoff)
	if err != nil {
		return SweepReport{}, err
	}
	report.Deleted = deleted

	if s.logger != nil {
		s.logger.Info("reaper sweep done",
			zap.Int64("deleted", deleted),
			zap.Int("candidates", len(report.Candidates)),
			zap.Int("threshold_days", thresholdDays),
		)
	}
	return report, nil
}
