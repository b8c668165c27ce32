package payment

import "context"

// Order es la orden creada en la pasarela antes del checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// VerifyResult resume la verificación de un pago: solo
// Authentic && Captured cuenta como pago confirmado.
type VerifyResult struct {
	Authentic bool
	Captured  bool
}

// Gateway define el contrato con la pasarela de pagos. El checkout del
// proveedor queda fuera; aquí solo se crean órdenes y se verifica.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int, currency, receipt string, notes map[string]string) (Order, error)
	Verify(ctx context.Context, orderID, paymentID, signature string) (VerifyResult, error)
}
