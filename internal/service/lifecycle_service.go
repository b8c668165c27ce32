package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/payment"
	"diecast-collector/internal/repository"
)

// Destination es el punto de entrada correcto para una cuenta según su
// fase; resultado puro de CheckStatus, sin mutación.
type Destination string

const (
	GoToLogin               Destination = "login"
	GoToPayment             Destination = "payment"
	GoToVerificationPending Destination = "verification_pending"
	GoToRegister            Destination = "register"
)

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	// ErrVerifiedAwaitingPayment es la señal de recuperación: la cuenta ya
	// verificó su email y solo le falta pagar; no es un conflicto.
	ErrVerifiedAwaitingPayment = errors.New("account verified, payment pending")
	ErrUserNotFound            = errors.New("user not found")
	ErrTokenInvalid            = errors.New("verification token invalid")
	// ErrTokenExpired implica que la cuenta fue reciclada; el único camino
	// es registrarse de nuevo.
	ErrTokenExpired         = errors.New("verification token expired, register again")
	ErrNotEligibleForPayment = errors.New("account not eligible for payment")
	ErrPaymentFailed         = errors.New("payment verification failed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInactiveAccount       = errors.New("account inactive")
)

const pendingOrderTTL = 30 * time.Minute

// PaymentIntent es lo que el checkout del proveedor necesita del lado
// del cliente.
type PaymentIntent struct {
	OrderID  string `json:"order_id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

// LifecycleService conduce una cuenta desde el registro hasta
// suscriptor activo.
type LifecycleService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	subs    repository.SubscriptionRepository
	tokens  *TokenService
	gateway payment.Gateway
	orders  PendingOrderStore

	amount   int
	currency string
	period   time.Duration
}

func NewLifecycleService(
	logger *zap.Logger,
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	tokens *TokenService,
	gateway payment.Gateway,
	orders PendingOrderStore,
	amount int,
	periodDays int,
) *LifecycleService {
	if orders == nil {
		orders = NewMemoryOrderStore()
	}
	if periodDays <= 0 {
		periodDays = 30
	}
	return &LifecycleService{
		logger:   logger,
		users:    users,
		subs:     subs,
		tokens:   tokens,
		gateway:  gateway,
		orders:   orders,
		amount:   amount,
		currency: "INR",
		period:   time.Duration(periodDays) * 24 * time.Hour,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register crea la cuenta inactiva y emite el token de verificación.
// Un duplicado en fase EmailVerified sin suscripción no bloquea: devuelve
// la señal de recuperación apuntando al pago.
func (s *LifecycleService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(input.Username)
	emailAddr := normalizeEmail(input.Email)
	password := strings.TrimSpace(input.Password)
	if username == "" || emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if existing, err := s.users.GetByUsername(ctx, username); err == nil {
		return s.duplicateSignal(ctx, existing, ErrDuplicateUsername)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if existing, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return s.duplicateSignal(ctx, existing, ErrDuplicateEmail)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		Active:       false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	if _, err := s.tokens.Issue(ctx, user); err != nil {
		// Sin token entregado la cuenta no puede avanzar; se descarta para
		// que el mismo email pueda registrarse de nuevo.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil && s.logger != nil {
			s.logger.Error("cleanup after failed token issue", zap.Error(delErr), zap.String("user_id", user.ID))
		}
		return domain.User{}, err
	}

	if s.logger != nil {
		s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", username))
	}
	return user, nil
}

// duplicateSignal distingue conflicto real de cuenta recuperable.
func (s *LifecycleService) duplicateSignal(ctx context.Context, existing domain.User, conflict error) (domain.User, error) {
	if existing.LifecycleStage() == domain.StageEmailVerified {
		_, err := s.subs.GetByUserID(ctx, existing.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return existing, ErrVerifiedAwaitingPayment
		}
		if err != nil {
			return domain.User{}, err
		}
	}
	return domain.User{}, conflict
}

// VerifyEmail consume el token y avanza la fase. Un token vencido borra
// la cuenta (misma regla de abandono que el reaper, con el TTL del token
// como plazo). Un clic duplicado sobre una cuenta ya verificada es
// idempotente.
func (s *LifecycleService) VerifyEmail(ctx context.Context, tokenValue string) (domain.User, error) {
	token, outcome, err := s.tokens.Consume(ctx, tokenValue)
	if err != nil {
		return domain.User{}, err
	}

	switch outcome {
	case ConsumeVerified:
		user, err := s.users.GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.User{}, ErrUserNotFound
			}
			return domain.User{}, err
		}
		verifiedAt := time.Now().UTC()
		if err := s.users.SetEmailVerified(ctx, user.ID, verifiedAt); err != nil {
			return domain.User{}, err
		}
		user.EmailVerifiedAt = &verifiedAt
		if s.logger != nil {
			s.logger.Info("email verified", zap.String("user_id", user.ID))
		}
		return user, nil

	case ConsumeExpired:
		if err := s.discardAbandoned(ctx, token.UserID); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, ErrTokenExpired

	case ConsumeAlreadyUsed:
		user, err := s.users.GetByID(ctx, token.UserID)
		if err == nil && user.LifecycleStage() != domain.StagePendingVerification {
			return user, nil
		}
		return domain.User{}, ErrTokenInvalid

	default:
		return domain.User{}, ErrTokenInvalid
	}
}

// discardAbandoned recicla una cuenta nunca pagada: tokens y usuario.
// El borrado es idempotente, dos llamadas concurrentes no fallan.
func (s *LifecycleService) discardAbandoned(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Active {
		return nil
	}
	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("abandoned registration discarded", zap.String("user_id", userID), zap.String("email", user.Email))
	}
	return nil
}

// InitiatePayment crea una orden en la pasarela sin tocar la fase de la
// cuenta; solo un pago confirmado avanza. Reintentable: órdenes viejas
// sin confirmar expiran solas en el store.
func (s *LifecycleService) InitiatePayment(ctx context.Context, userID string) (PaymentIntent, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentIntent{}, ErrUserNotFound
		}
		return PaymentIntent{}, err
	}
	if err := s.paymentEligibility(ctx, user); err != nil {
		return PaymentIntent{}, err
	}

	now := time.Now().UTC()
	receipt := fmt.Sprintf("receipt_%s", now.Format("20060102150405"))
	notes := map[string]string{
		"username": user.Username,
		"user_id":  user.ID,
		"purpose":  "monthly_subscription",
	}
	order, err := s.gateway.CreateOrder(ctx, s.amount, s.currency, receipt, notes)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("create order failed", zap.Error(err), zap.String("user_id", user.ID))
		}
		return PaymentIntent{}, ErrPaymentFailed
	}

	if err := s.orders.Store(order.ID, user.ID, pendingOrderTTL); err != nil && s.logger != nil {
		s.logger.Warn("store pending order failed", zap.Error(err), zap.String("order_id", order.ID))
	}

	return PaymentIntent{
		OrderID:  order.ID,
		Amount:   s.amount,
		Currency: s.currency,
	}, nil
}

// InitiatePaymentByEmail resuelve la cuenta por email antes de crear la
// orden; el flujo de activación ocurre antes de que exista sesión.
func (s *LifecycleService) InitiatePaymentByEmail(ctx context.Context, emailAddr string) (PaymentIntent, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentIntent{}, ErrUserNotFound
		}
		return PaymentIntent{}, err
	}
	return s.InitiatePayment(ctx, user.ID)
}

// ResolveOrderUser recupera el dueño de una orden pendiente; para el
// callback de pago cuando aún no hay sesión autenticada.
func (s *LifecycleService) ResolveOrderUser(orderID string) (string, bool) {
	userID, ok, err := s.orders.Lookup(orderID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("pending order lookup failed", zap.Error(err), zap.String("order_id", orderID))
		}
		return "", false
	}
	return userID, ok
}

// ConfirmPayment verifica el pago con la pasarela y aplica el asiento
// en una transacción. Idempotente por orderID: la confirmación duplicada
// es un éxito sin efecto. Cualquier fallo de verificación, incluido un
// timeout de la pasarela, deja la cuenta como estaba y es reintentable.
func (s *LifecycleService) ConfirmPayment(ctx context.Context, userID, orderID, paymentID, signature string) (domain.Subscription, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, ErrUserNotFound
		}
		return domain.Subscription{}, err
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return domain.Subscription{}, ErrPaymentFailed
	}

	result, err := s.gateway.Verify(ctx, orderID, paymentID, signature)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("gateway verify failed", zap.Error(err), zap.String("order_id", orderID))
		}
		return domain.Subscription{}, ErrPaymentFailed
	}
	if !result.Authentic || !result.Captured {
		return domain.Subscription{}, ErrPaymentFailed
	}

	now := time.Now().UTC()
	sub, applied, err := s.subs.ApplyPayment(ctx, user.ID, orderID, paymentID, now, s.period)
	if err != nil {
		return domain.Subscription{}, err
	}
	_ = s.orders.Remove(orderID)

	if s.logger != nil {
		s.logger.Info("payment confirmed",
			zap.String("user_id", user.ID),
			zap.String("order_id", orderID),
			zap.Bool("applied", applied),
			zap.Time("end_date", sub.EndDate),
		)
	}
	return sub, nil
}

// CheckStatus resuelve el destino correcto para un email; lectura pura.
func (s *LifecycleService) CheckStatus(ctx context.Context, emailAddr string) (Destination, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoToRegister, nil
		}
		return "", err
	}

	switch user.LifecycleStage() {
	case domain.StagePendingVerification:
		return GoToVerificationPending, nil
	case domain.StageEmailVerified:
		return GoToPayment, nil
	default:
		sub, err := s.subs.GetByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return GoToPayment, nil
			}
			return "", err
		}
		if sub.IsValid(time.Now().UTC()) {
			return GoToLogin, nil
		}
		return GoToPayment, nil
	}
}

// Authenticate valida credenciales; solo cuentas activas pueden entrar.
func (s *LifecycleService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.User{}, ErrInactiveAccount
	}
	return user, nil
}

// paymentEligibility admite pago desde EmailVerified o desde una cuenta
// activa cuya ventana expiró o está por expirar (renovación).
func (s *LifecycleService) paymentEligibility(ctx context.Context, user domain.User) error {
	switch user.LifecycleStage() {
	case domain.StagePendingVerification:
		return ErrNotEligibleForPayment
	case domain.StageEmailVerified:
		return nil
	default:
		sub, err := s.subs.GetByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if sub.Status(time.Now().UTC()) == domain.SubscriptionActive {
			return ErrNotEligibleForPayment
		}
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
