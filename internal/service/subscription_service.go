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

var ErrNoSubscription = errors.New("no subscription")

// SubscriptionView es la suscripción con sus derivaciones ya calculadas.
type SubscriptionView struct {
	Subscription  domain.Subscription       `json:"subscription"`
	Status        domain.SubscriptionStatus `json:"status"`
	DaysRemaining int                       `json:"days_remaining"`
}

// SubscriptionService expone lecturas del libro mayor y la preferencia
// de renovación automática. Las escrituras de ventanas pasan solo por
// ConfirmPayment; aquí nunca se acorta ni se duplica una suscripción.
type SubscriptionService struct {
	logger *zap.Logger
	subs   repository.SubscriptionRepository
}

func NewSubscriptionService(logger *zap.Logger, subs repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{logger: logger, subs: subs}
}

func (s *SubscriptionService) GetForUser(ctx context.Context, userID string) (SubscriptionView, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubscriptionView{}, ErrNoSubscription
		}
		return SubscriptionView{}, err
	}
	now := time.Now().UTC()
	return SubscriptionView{
		Subscription:  sub,
		Status:        sub.Status(now),
		DaysRemaining: sub.DaysRemaining(now),
	}, nil
}

func (s *SubscriptionService) SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error {
	err := s.subs.SetAutoRenew(ctx, userID, autoRenew)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoSubscription
	}
	if err == nil && s.logger != nil {
		s.logger.Info("auto renew updated", zap.String("user_id", userID), zap.Bool("auto_renew", autoRenew))
	}
	return err
}
