package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/service"
)

// PaymentHandler maneja el alta y confirmación de pagos de suscripción.
// Las rutas son públicas: el flujo de activación ocurre antes de que la
// cuenta pueda iniciar sesión, y el usuario de una confirmación se
// resuelve por el id de orden pendiente guardado al iniciar.
type PaymentHandler struct {
	logger    *zap.Logger
	lifecycle *service.LifecycleService
	keyID     string
}

func NewPaymentHandler(logger *zap.Logger, lifecycle *service.LifecycleService, keyID string) *PaymentHandler {
	return &PaymentHandler{logger: logger, lifecycle: lifecycle, keyID: keyID}
}

type initiatePaymentRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Initiate crea la orden en la pasarela y devuelve lo que el checkout
// necesita del lado del cliente.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	intent, err := h.lifecycle.InitiatePaymentByEmail(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"order_id": intent.OrderID,
			"amount":   intent.Amount,
			"currency": intent.Currency,
			"key_id":   h.keyID,
		})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":       "account not found",
			"destination": service.GoToRegister,
		})
	case errors.Is(err, service.ErrNotEligibleForPayment):
		c.JSON(http.StatusConflict, gin.H{"error": "account not eligible for payment"})
	case errors.Is(err, service.ErrPaymentFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not create payment order"})
	default:
		h.logger.Error("initiate payment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type confirmPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Confirm verifica el pago con la pasarela y activa la suscripción. Es
// idempotente por order_id: repetir una confirmación ya aplicada devuelve
// el mismo resultado sin duplicar la ventana.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, ok := h.lifecycle.ResolveOrderUser(req.OrderID)
	if !ok {
		// La referencia expiró o nunca existió; hay que iniciar de nuevo.
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown or expired payment order"})
		return
	}

	sub, err := h.lifecycle.ConfirmPayment(c.Request.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"subscription_end": sub.EndDate,
			"destination":      service.GoToLogin,
		})
	case errors.Is(err, service.ErrPaymentFailed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment verification failed"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		h.logger.Error("confirm payment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
