package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	paymentH *PaymentHandler,
	subH *SubscriptionHandler,
	prefH *PreferenceHandler,
	carH *CarHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	// Flujo de activación: todo antes del login es público.
	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)
	auth.POST("/status", authH.Status)

	r.GET("/verify-email", authH.VerifyEmail)

	pay := r.Group("/payment")
	pay.POST("/initiate", paymentH.Initiate)
	pay.POST("/confirm", paymentH.Confirm)

	// Superficie autenticada.
	protected := r.Group("", JWTAuthMiddleware(jwtSvc))
	protected.GET("/subscription", subH.Get)
	protected.POST("/subscription/auto-renew", subH.SetAutoRenew)
	protected.GET("/preferences", prefH.Get)
	protected.PUT("/preferences", prefH.Update)
	protected.GET("/cars", carH.List)
	protected.POST("/cars/:id/delivered", carH.MarkDelivered)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
