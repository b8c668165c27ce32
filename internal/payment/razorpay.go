package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RazorpayClient implementa Gateway contra la API de órdenes de Razorpay.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpayClient construye el cliente con timeout acotado: un timeout
// se trata como pago rechazado en este intento, nunca como error fatal.
func NewRazorpayClient(baseURL, keyID, keySecret string) *RazorpayClient {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int, currency, receipt string, notes map[string]string) (Order, error) {
	reqBody := orderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes:          notes,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(bodyBytes))
	if err != nil {
		return Order{}, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Order{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return Order{}, fmt.Errorf("razorpay order error: status=%d", resp.StatusCode)
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return Order{}, fmt.Errorf("unmarshal order: %w", err)
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("razorpay empty order id")
	}
	return order, nil
}

// Verify comprueba la firma HMAC del checkout y el estado captured del
// pago. Firma inválida o estado distinto es un pago rechazado, no un error.
func (c *RazorpayClient) Verify(ctx context.Context, orderID, paymentID, signature string) (VerifyResult, error) {
	authentic := c.signatureValid(orderID, paymentID, signature)
	if !authentic {
		return VerifyResult{Authentic: false}, nil
	}

	status, err := c.fetchPaymentStatus(ctx, paymentID)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Authentic: true,
		Captured:  status == "captured",
	}, nil
}

// La firma del checkout es HMAC-SHA256 de "order_id|payment_id" con el
// key secret, en hex.
func (c *RazorpayClient) signatureValid(orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *RazorpayClient) fetchPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("razorpay payment fetch error: status=%d", resp.StatusCode)
	}

	var payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return "", fmt.Errorf("unmarshal payment: %w", err)
	}
	return payment.Status, nil
}

type orderRequest struct {
	Amount         int               `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}
