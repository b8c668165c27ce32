package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/service"
)

// SubscriptionHandler expone la suscripción del usuario autenticado.
type SubscriptionHandler struct {
	logger *zap.Logger
	subs   *service.SubscriptionService
}

func NewSubscriptionHandler(logger *zap.Logger, subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{logger: logger, subs: subs}
}

// Get devuelve la suscripción con estado y días restantes derivados.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	view, err := h.subs.GetForUser(c.Request.Context(), claims.UserID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, service.ErrNoSubscription):
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription"})
	default:
		h.logger.Error("get subscription failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type autoRenewRequest struct {
	AutoRenew *bool `json:"auto_renew" binding:"required"`
}

// SetAutoRenew actualiza la preferencia de renovación automática.
func (h *SubscriptionHandler) SetAutoRenew(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req autoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AutoRenew == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.subs.SetAutoRenew(c.Request.Context(), claims.UserID, *req.AutoRenew)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"auto_renew": *req.AutoRenew})
	case errors.Is(err, service.ErrNoSubscription):
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription"})
	default:
		h.logger.Error("set auto renew failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
