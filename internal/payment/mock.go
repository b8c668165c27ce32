package payment

import (
	"context"
	"fmt"
)

// MockGateway permite tests sin llamar a la pasarela real.
type MockGateway struct {
	Order     Order
	OrderErr  error
	Result    VerifyResult
	VerifyErr error

	CreatedOrders []Order
	Verified      [][3]string
}

func (m *MockGateway) CreateOrder(_ context.Context, amount int, currency, receipt string, _ map[string]string) (Order, error) {
	if m.OrderErr != nil {
		return Order{}, m.OrderErr
	}
	order := m.Order
	if order.ID == "" {
		order.ID = fmt.Sprintf("order_mock_%d", len(m.CreatedOrders)+1)
	}
	order.Amount = amount
	order.Currency = currency
	order.Receipt = receipt
	m.CreatedOrders = append(m.CreatedOrders, order)
	return order, nil
}

func (m *MockGateway) Verify(_ context.Context, orderID, paymentID, signature string) (VerifyResult, error) {
	m.Verified = append(m.Verified, [3]string{orderID, paymentID, signature})
	if m.VerifyErr != nil {
		return VerifyResult{}, m.VerifyErr
	}
	return m.Result, nil
}
