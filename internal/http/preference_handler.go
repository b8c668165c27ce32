package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/service"
)

// PreferenceHandler expone las preferencias de notificación del usuario.
type PreferenceHandler struct {
	logger *zap.Logger
	prefs  *service.PreferenceService
}

func NewPreferenceHandler(logger *zap.Logger, prefs *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{logger: logger, prefs: prefs}
}

// Get devuelve las preferencias, creándolas con defaults si no existen.
func (h *PreferenceHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	prefs, err := h.prefs.GetForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("get preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	EmailOverdueAlerts      *bool `json:"email_overdue_alerts" binding:"required"`
	EmailUpcomingAlerts     *bool `json:"email_upcoming_alerts" binding:"required"`
	EmailDailySummary       *bool `json:"email_daily_summary" binding:"required"`
	AlertDaysBeforeDelivery int   `json:"alert_days_before_delivery" binding:"required"`
}

// Update reemplaza las preferencias completas del usuario.
func (h *PreferenceHandler) Update(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	prefs, err := h.prefs.Update(c.Request.Context(), claims.UserID, service.UpdatePreferencesInput{
		EmailOverdueAlerts:      *req.EmailOverdueAlerts,
		EmailUpcomingAlerts:     *req.EmailUpcomingAlerts,
		EmailDailySummary:       *req.EmailDailySummary,
		AlertDaysBeforeDelivery: req.AlertDaysBeforeDelivery,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, prefs)
	case errors.Is(err, service.ErrInvalidAlertDays):
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert days must be between 1 and 30"})
	default:
		h.logger.Error("update preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
