package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diecast-collector/internal/domain"
	"diecast-collector/internal/email"
	"diecast-collector/internal/repository"
)

// ConsumeOutcome clasifica el resultado de consumir un token.
type ConsumeOutcome int

const (
	ConsumeVerified ConsumeOutcome = iota
	ConsumeExpired
	ConsumeAlreadyUsed
	ConsumeNotFound
)

var (
	ErrEmailSendFailure = errors.New("email send failed")
	ErrRateLimited      = errors.New("rate limited")
)

const defaultTokenTTL = 24 * time.Hour

// TokenService emite y consume tokens de verificación de un solo uso.
type TokenService struct {
	logger  *zap.Logger
	tokens  repository.TokenRepository
	sender  email.Sender
	limiter RateLimiter
	baseURL string
	ttl     time.Duration
}

func NewTokenService(logger *zap.Logger, tokens repository.TokenRepository, sender email.Sender, limiter RateLimiter, baseURL string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if limiter == nil {
		limiter = NewRateLimiter(ttl, 3)
	}
	return &TokenService{
		logger:  logger,
		tokens:  tokens,
		sender:  sender,
		limiter: limiter,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
	}
}

// Issue genera un token impredecible, reemplaza los anteriores sin usar
// del usuario y dispara el correo con el enlace de verificación.
func (s *TokenService) Issue(ctx context.Context, user domain.User) (domain.VerificationToken, error) {
	if s.limiter != nil && !s.limiter.Allow(user.Email) {
		return domain.VerificationToken{}, ErrRateLimited
	}

	value, err := generateTokenValue()
	if err != nil {
		return domain.VerificationToken{}, err
	}

	now := time.Now().UTC()
	token := domain.VerificationToken{
		Value:     value,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		Used:      false,
	}

	if err := s.tokens.InvalidateForUser(ctx, user.ID); err != nil {
		return domain.VerificationToken{}, err
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return domain.VerificationToken{}, err
	}

	if s.sender == nil {
		return domain.VerificationToken{}, ErrEmailSendFailure
	}
	link := s.baseURL + "/verify-email?token=" + value
	if err := s.sender.SendVerificationLink(ctx, user.Email, link, token.ExpiresAt); err != nil {
		if s.logger != nil {
			s.logger.Warn("send verification link failed", zap.Error(err), zap.String("email", user.Email))
		}
		return domain.VerificationToken{}, ErrEmailSendFailure
	}

	return token, nil
}

// Consume intenta el check-and-flip y clasifica el resultado. Dos
// llamadas concurrentes sobre el mismo token producen exactamente un
// ConsumeVerified; la perdedora observa ConsumeAlreadyUsed.
func (s *TokenService) Consume(ctx context.Context, value string) (domain.VerificationToken, ConsumeOutcome, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.VerificationToken{}, ConsumeNotFound, nil
	}

	now := time.Now().UTC()
	token, err := s.tokens.Consume(ctx, value, now)
	if err == nil {
		return token, ConsumeVerified, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.VerificationToken{}, ConsumeNotFound, err
	}

	token, err = s.tokens.GetByValue(ctx, value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.VerificationToken{}, ConsumeNotFound, nil
	case err != nil:
		return domain.VerificationToken{}, ConsumeNotFound, err
	case token.Used:
		return token, ConsumeAlreadyUsed, nil
	case token.Expired(now):
		// Sin usar y vencido: el dueño queda para el reclamo por expiración.
		return token, ConsumeExpired, nil
	default:
		// El flip se perdió contra otro consumidor entre las dos sentencias.
		return token, ConsumeAlreadyUsed, nil
	}
}

// DeleteAllForUser elimina el historial de tokens; acompaña al borrado
// de la cuenta.
func (s *TokenService) DeleteAllForUser(ctx context.Context, userID string) error {
	return s.tokens.DeleteByUser(ctx, userID)
}

func generateTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RateLimiter limita la frecuencia de emisión de tokens por clave.
type RateLimiter interface {
	Allow(key string) bool
}

type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewRateLimiter crea un rate limiter en memoria.
func NewRateLimiter(window time.Duration, max int) RateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *rateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
