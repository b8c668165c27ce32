package domain

import "time"

// SubscriptionStatus clasifica la ventana de validez de una suscripción.
type SubscriptionStatus string

const (
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionExpiringSoon SubscriptionStatus = "expiring_soon"
	SubscriptionExpired      SubscriptionStatus = "expired"
)

// Subscription es la fila única por usuario con la ventana pagada.
// Las renovaciones extienden esta fila, nunca crean una segunda.
type Subscription struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	AutoRenew  bool      `json:"auto_renew"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsValid indica si la ventana cubre el instante dado.
func (s Subscription) IsValid(now time.Time) bool {
	return !s.EndDate.Before(now)
}

// DaysRemaining devuelve los días completos restantes, nunca negativo.
func (s Subscription) DaysRemaining(now time.Time) int {
	if !s.IsValid(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}

// Status deriva el estado para UI y urgencia de correos. ExpiringSoon
// no es una fase del ciclo de vida, solo una bandera de aviso.
func (s Subscription) Status(now time.Time) SubscriptionStatus {
	if !s.IsValid(now) {
		return SubscriptionExpired
	}
	remaining := s.EndDate.Sub(now)
	if remaining > 0 && remaining <= 7*24*time.Hour {
		return SubscriptionExpiringSoon
	}
	return SubscriptionActive
}

// ExtendedEnd calcula el nuevo fin tras un pago: una renovación con
// tiempo restante lo conserva, una expirada arranca desde ahora.
func (s Subscription) ExtendedEnd(now time.Time, period time.Duration) time.Time {
	if s.IsValid(now) {
		return s.EndDate.Add(period)
	}
	return now.Add(period)
}
