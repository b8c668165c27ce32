package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/service"
)

// CarHandler expone el inventario del usuario autenticado.
type CarHandler struct {
	logger *zap.Logger
	cars   *service.CarService
}

func NewCarHandler(logger *zap.Logger, cars *service.CarService) *CarHandler {
	return &CarHandler{logger: logger, cars: cars}
}

// List devuelve el inventario del usuario ordenado por fecha de entrega.
func (h *CarHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	cars, err := h.cars.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list cars failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if cars == nil {
		cars = []domain.DiecastCar{}
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// MarkDelivered registra que la entrega fue recibida.
func (h *CarHandler) MarkDelivered(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	carID := c.Param("id")
	err := h.cars.MarkDelivered(c.Request.Context(), carID, claims.UserID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": carID, "status": "Delivered"})
	case errors.Is(err, service.ErrCarNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
	default:
		h.logger.Error("mark delivered failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
