package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diecast-collector/internal/service"
)

// AuthHandler maneja registro, verificación de email, login y status.
type AuthHandler struct {
	logger    *zap.Logger
	lifecycle *service.LifecycleService
	jwt       *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, lifecycle *service.LifecycleService, jwt *service.JWTService) *AuthHandler {
	return &AuthHandler{logger: logger, lifecycle: lifecycle, jwt: jwt}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register crea la cuenta y dispara el email de verificación.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.lifecycle.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"user_id":     user.ID,
			"email":       user.Email,
			"stage":       user.LifecycleStage(),
			"destination": service.GoToVerificationPending,
		})
	case errors.Is(err, service.ErrVerifiedAwaitingPayment):
		// Cuenta recuperable: ya verificó, solo falta pagar.
		c.JSON(http.StatusOK, gin.H{
			"user_id":     user.ID,
			"email":       user.Email,
			"stage":       user.LifecycleStage(),
			"destination": service.GoToPayment,
			"message":     "account already verified, complete payment to activate",
		})
	case errors.Is(err, service.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration data"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many verification emails, try later"})
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send verification email"})
	default:
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// VerifyEmail consume el token del link enviado por correo.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	user, err := h.lifecycle.VerifyEmail(c.Request.Context(), tokenValue)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"user_id":     user.ID,
			"stage":       user.LifecycleStage(),
			"destination": service.GoToPayment,
		})
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{
			"error":       "verification link expired, register again",
			"destination": service.GoToRegister,
		})
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid verification link"})
	default:
		h.logger.Error("verify email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login autentica y entrega el par de tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.lifecycle.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		pair, err := h.jwt.GeneratePair(user)
		if err != nil {
			h.logger.Error("generate token pair failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":       user.ID,
			"username":      user.Username,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_in":    pair.ExpiresIn,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, gin.H{
			"error":       "account not active",
			"destination": service.GoToPayment,
		})
	default:
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rota el refresh token y emite un nuevo par.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pair, err := h.jwt.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revoca el refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.jwt.RevokeRefresh(req.RefreshToken); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Status resuelve a dónde debe ir una cuenta según su fase; lectura pura.
func (h *AuthHandler) Status(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	dest, err := h.lifecycle.CheckStatus(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("check status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": dest})
}
