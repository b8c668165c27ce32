package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/email"
	"diecast-collector/internal/repository"
)

// AlertDecision es el veredicto del motor de elegibilidad para un
// usuario: qué entregas reportar y si corresponde enviar.
type AlertDecision struct {
	User     domain.User         `json:"user"`
	Eligible bool                `json:"eligible"`
	Overdue  []domain.DiecastCar `json:"overdue"`
	Upcoming []domain.DiecastCar `json:"upcoming"`
	Send     bool                `json:"send"`
}

// AlertRunReport resume una corrida sobre todos los usuarios.
type AlertRunReport struct {
	Evaluated int  `json:"evaluated"`
	Sent      int  `json:"sent"`
	Skipped   int  `json:"skipped"`
	DryRun    bool `json:"dry_run"`
}

// AlertService decide quién recibe alertas de entrega. Es de solo
// lectura sobre el estado: el envío real pasa por el Sender y cada
// corrida vuelve a decidir desde cero, sin registro de enviados.
type AlertService struct {
	logger *zap.Logger
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	prefs  repository.PreferenceRepository
	cars   repository.CarRepository
	sender email.Sender
}

func NewAlertService(
	logger *zap.Logger,
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	prefs repository.PreferenceRepository,
	cars repository.CarRepository,
	sender email.Sender,
) *AlertService {
	return &AlertService{
		logger: logger,
		users:  users,
		subs:   subs,
		prefs:  prefs,
		cars:   cars,
		sender: sender,
	}
}

// Evaluate computa la decisión para un usuario sin efectos secundarios.
// Cuentas sin suscripción válida quedan excluidas por completo.
func (s *AlertService) Evaluate(ctx context.Context, user domain.User, today time.Time) (AlertDecision, error) {
	decision := AlertDecision{User: user}

	sub, err := s.subs.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decision, nil
		}
		return decision, err
	}
	if !user.Active || !sub.IsValid(time.Now().UTC()) {
		return decision, nil
	}
	decision.Eligible = true

	prefs, err := s.prefs.GetByUserID(ctx, user.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		prefs = domain.DefaultPreferences(user.ID)
	} else if err != nil {
		return decision, err
	}

	cars, err := s.cars.ListUndeliveredByUser(ctx, user.ID)
	if err != nil {
		return decision, err
	}

	for _, car := range cars {
		switch {
		case car.Overdue(today):
			decision.Overdue = append(decision.Overdue, car)
		case car.UpcomingWithin(today, prefs.AlertDaysBeforeDelivery):
			decision.Upcoming = append(decision.Upcoming, car)
		}
	}

	if !prefs.EmailOverdueAlerts {
		decision.Overdue = nil
	}
	if !prefs.EmailUpcomingAlerts {
		decision.Upcoming = nil
	}
	decision.Send = len(decision.Overdue) > 0 || len(decision.Upcoming) > 0
	return decision, nil
}

// RunUser corre el motor para un solo usuario identificado por email.
func (s *AlertService) RunUser(ctx context.Context, emailAddr string, dryRun bool) (AlertDecision, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AlertDecision{}, ErrUserNotFound
		}
		return AlertDecision{}, err
	}

	decision, err := s.Evaluate(ctx, user, Today())
	if err != nil {
		return AlertDecision{}, err
	}
	if decision.Send && !dryRun {
		if err := s.dispatch(ctx, decision); err != nil {
			return decision, err
		}
	}
	return decision, nil
}

// RunAll corre el motor para todos los usuarios con entregas pendientes.
func (s *AlertService) RunAll(ctx context.Context, dryRun bool) (AlertRunReport, error) {
	report := AlertRunReport{DryRun: dryRun}
	userIDs, err := s.cars.ListUserIDsWithPending(ctx)
	if err != nil {
		return report, err
	}

	today := Today()
	for _, id := range userIDs {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return report, err
		}

		decision, err := s.Evaluate(ctx, user, today)
		if err != nil {
			return report, err
		}
		report.Evaluated++
		if !decision.Send {
			report.Skipped++
			continue
		}
		if dryRun {
			report.Sent++
			continue
		}
		if err := s.dispatch(ctx, decision); err != nil {
			// Un fallo de envío no aborta la corrida completa.
			if s.logger != nil {
				s.logger.Warn("delivery alert failed", zap.Error(err), zap.String("email", user.Email))
			}
			report.Skipped++
			continue
		}
		report.Sent++
	}

	if s.logger != nil {
		s.logger.Info("alert run done",
			zap.Int("evaluated", report.Evaluated),
			zap.Int("sent", report.Sent),
			zap.Int("skipped", report.Skipped),
			zap.Bool("dry_run", dryRun),
		)
	}
	return report, nil
}

func (s *AlertService) dispatch(ctx context.Context, decision AlertDecision) error {
	if s.sender == nil {
		return ErrEmailSendFailure
	}
	return s.sender.SendDeliveryAlert(ctx, decision.User.Email, decision.Overdue, decision.Upcoming)
}

// Today trunca el reloj a la fecha UTC; las ventanas de entrega razonan
// en días completos.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
