package domain

import "time"

// User representa una cuenta de coleccionista. Active solo se enciende
// junto con una suscripción pagada.
type User struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Active          bool       `json:"active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Stage es la fase del ciclo de vida de la cuenta, derivada, nunca almacenada.
type Stage string

const (
	StagePendingVerification Stage = "pending_verification"
	StageEmailVerified       Stage = "email_verified"
	StageActive              Stage = "active"
)

// LifecycleStage deriva la fase actual del usuario.
func (u User) LifecycleStage() Stage {
	if u.Active {
		return StageActive
	}
	if u.EmailVerifiedAt != nil {
		return StageEmailVerified
	}
	return StagePendingVerification
}

// AbandonedSince decide si una cuenta nunca pagada quedó abandonada.
// Es la misma regla para la expiración de tokens y para el reaper:
// sin pago antes del plazo, la cuenta se recicla.
func (u User) AbandonedSince(deadline time.Time) bool {
	return !u.Active && u.CreatedAt.Before(deadline)
}
