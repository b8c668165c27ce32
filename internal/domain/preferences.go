package domain

import "time"

// NotificationPreferences controla qué alertas de entrega recibe el usuario.
type NotificationPreferences struct {
	UserID                  string    `json:"user_id"`
	EmailOverdueAlerts      bool      `json:"email_overdue_alerts"`
	EmailUpcomingAlerts     bool      `json:"email_upcoming_alerts"`
	EmailDailySummary       bool      `json:"email_daily_summary"`
	AlertDaysBeforeDelivery int       `json:"alert_days_before_delivery"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// DefaultPreferences son los valores al crear perezosamente el registro.
func DefaultPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:                  userID,
		EmailOverdueAlerts:      true,
		EmailUpcomingAlerts:     true,
		EmailDailySummary:       false,
		AlertDaysBeforeDelivery: 3,
	}
}
