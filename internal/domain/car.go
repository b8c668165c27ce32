package domain

import "time"

// DiecastCar es el registro de inventario que consume el motor de alertas.
// El tracker completo vive fuera de este servicio; aquí solo importan las
// fechas de entrega.
type DiecastCar struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ModelName       string     `json:"model_name"`
	Manufacturer    string     `json:"manufacturer"`
	Price           float64    `json:"price"`
	DeliveryDueDate time.Time  `json:"delivery_due_date"`
	DeliveredDate   *time.Time `json:"delivered_date,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Overdue indica entrega vencida y aún no recibida. today debe estar
// truncado a medianoche.
func (c DiecastCar) Overdue(today time.Time) bool {
	return c.DeliveredDate == nil && c.DeliveryDueDate.Before(today)
}

// UpcomingWithin indica entrega pendiente dentro de la ventana de aviso.
func (c DiecastCar) UpcomingWithin(today time.Time, days int) bool {
	if c.DeliveredDate != nil {
		return false
	}
	limit := today.AddDate(0, 0, days)
	return !c.DeliveryDueDate.Before(today) && !c.DeliveryDueDate.After(limit)
}
