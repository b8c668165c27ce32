package domain

import "time"

// VerificationToken es una credencial de un solo uso que prueba control
// del email. Used pasa de false a true exactamente una vez.
type VerificationToken struct {
	Value     string    `json:"-"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

func (t VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
