package email

import (
	"context"
	"errors"
	"time"

	"diecast-collector/internal/domain"
)

// Sender define la interfaz para correos del ciclo de vida y alertas de
// entrega. El motor de alertas solo decide; el envío vive aquí.
type Sender interface {
	SendVerificationLink(ctx context.Context, toEmail, link string, expiresAt time.Time) error
	SendDeliveryAlert(ctx context.Context, toEmail string, overdue, upcoming []domain.DiecastCar) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationLink(_ context.Context, _ string, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendDeliveryAlert(_ context.Context, _ string, _, _ []domain.DiecastCar) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
