package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/repository"
)

var ErrInvalidAlertDays = errors.New("alert days must be between 1 and 30")

// PreferenceService administra las preferencias de notificación del
// propio usuario; el registro se crea perezosamente con los defaults.
type PreferenceService struct {
	logger *zap.Logger
	prefs  repository.PreferenceRepository
}

func NewPreferenceService(logger *zap.Logger, prefs repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{logger: logger, prefs: prefs}
}

func (s *PreferenceService) GetForUser(ctx context.Context, userID string) (domain.NotificationPreferences, error) {
	prefs, err := s.prefs.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		prefs = domain.DefaultPreferences(userID)
		if err := s.prefs.Upsert(ctx, prefs); err != nil {
			return domain.NotificationPreferences{}, err
		}
		return prefs, nil
	}
	return prefs, err
}

type UpdatePreferencesInput struct {
	EmailOverdueAlerts      bool
	EmailUpcomingAlerts     bool
	EmailDailySummary       bool
	AlertDaysBeforeDelivery int
}

func (s *PreferenceService) Update(ctx context.Context, userID string, input UpdatePreferencesInput) (domain.NotificationPreferences, error) {
	if input.AlertDaysBeforeDelivery < 1 || input.AlertDaysBeforeDelivery > 30 {
		return domain.NotificationPreferences{}, ErrInvalidAlertDays
	}

	prefs := domain.NotificationPreferences{
		UserID:                  userID,
		EmailOverdueAlerts:      input.EmailOverdueAlerts,
		EmailUpcomingAlerts:     input.EmailUpcomingAlerts,
		EmailDailySummary:       input.EmailDailySummary,
		AlertDaysBeforeDelivery: input.AlertDaysBeforeDelivery,
	}
	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return domain.NotificationPreferences{}, err
	}
	if s.logger != nil {
		s.logger.Info("preferences updated", zap.String("user_id", userID))
	}
	return prefs, nil
}
