package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"diecast-collector/internal/domain"
)

func TestTokenService_IssueSendsLinkAndReplacesPrevious(t *testing.T) {
	tokens := newMemTokenRepo()
	sender := &recordingSender{}
	svc := NewTokenService(nil, tokens, sender, allowAll{}, "http://localhost:8080/", 24*time.Hour)
	user := domain.User{ID: "u1", Email: "a@example.com"}

	first, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue again: %v", err)
	}
	if first.Value == second.Value {
		t.Fatal("expected distinct token values")
	}

	remaining := tokens.forUser("u1")
	if len(remaining) != 1 || remaining[0].Value != second.Value {
		t.Fatalf("expected only latest token to remain, got %d", len(remaining))
	}
	if len(sender.links) != 2 {
		t.Fatalf("expected 2 links sent, got %d", len(sender.links))
	}
	if !strings.HasPrefix(sender.links[1], "http://localhost:8080/verify-email?token=") {
		t.Fatalf("unexpected link format: %s", sender.links[1])
	}
	if !strings.HasSuffix(sender.links[1], second.Value) {
		t.Fatal("link does not carry the token value")
	}
}

func TestTokenService_IssueRateLimited(t *testing.T) {
	tokens := newMemTokenRepo()
	sender := &recordingSender{}
	svc := NewTokenService(nil, tokens, sender, NewRateLimiter(time.Hour, 2), "http://localhost", 24*time.Hour)
	user := domain.User{ID: "u1", Email: "a@example.com"}

	for i := 0; i < 2; i++ {
		if _, err := svc.Issue(context.Background(), user); err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
	}
	if _, err := svc.Issue(context.Background(), user); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestTokenService_IssueEmailFailure(t *testing.T) {
	tokens := newMemTokenRepo()
	sender := &recordingSender{linkErr: errors.New("smtp down")}
	svc := NewTokenService(nil, tokens, sender, allowAll{}, "http://localhost", 24*time.Hour)

	_, err := svc.Issue(context.Background(), domain.User{ID: "u1", Email: "a@example.com"})
	if !errors.Is(err, ErrEmailSendFailure) {
		t.Fatalf("expected ErrEmailSendFailure, got %v", err)
	}
}

func TestTokenService_ConsumeOutcomes(t *testing.T) {
	now := time.Now().UTC()
	tokens := newMemTokenRepo()
	tokens.tokens["fresh"] = domain.VerificationToken{Value: "fresh", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	tokens.tokens["used"] = domain.VerificationToken{Value: "used", UserID: "u2", ExpiresAt: now.Add(time.Hour), Used: true}
	tokens.tokens["stale"] = domain.VerificationToken{Value: "stale", UserID: "u3", ExpiresAt: now.Add(-time.Hour)}

	svc := NewTokenService(nil, tokens, &recordingSender{}, allowAll{}, "http://localhost", 24*time.Hour)

	tests := []struct {
		name  string
		value string
		want  ConsumeOutcome
	}{
		{"fresh token verifies", "fresh", ConsumeVerified},
		{"used token rejected", "used", ConsumeAlreadyUsed},
		{"expired token classified", "stale", ConsumeExpired},
		{"unknown token", "nope", ConsumeNotFound},
		{"blank value", "  ", ConsumeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, outcome, err := svc.Consume(context.Background(), tt.value)
			if err != nil {
				t.Fatalf("consume: %v", err)
			}
			if outcome != tt.want {
				t.Fatalf("expected outcome %v, got %v", tt.want, outcome)
			}
			if tt.want == ConsumeVerified && !token.Used {
				t.Fatal("verified token should come back used")
			}
		})
	}
}

func TestTokenService_ConsumeConcurrentSingleWinner(t *testing.T) {
	now := time.Now().UTC()
	tokens := newMemTokenRepo()
	tokens.tokens["race"] = domain.VerificationToken{Value: "race", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	svc := NewTokenService(nil, tokens, &recordingSender{}, allowAll{}, "http://localhost", 24*time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	outcomes := make([]ConsumeOutcome, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, outcome, err := svc.Consume(context.Background(), "race")
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	verified := 0
	for _, o := range outcomes {
		switch o {
		case ConsumeVerified:
			verified++
		case ConsumeAlreadyUsed:
		default:
			t.Fatalf("unexpected outcome %v", o)
		}
	}
	if verified != 1 {
		t.Fatalf("expected exactly one winner, got %d", verified)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(50*time.Millisecond, 1)
	if !limiter.Allow("k") {
		t.Fatal("first hit should pass")
	}
	if limiter.Allow("k") {
		t.Fatal("second hit inside window should be blocked")
	}
	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Fatal("hit after window should pass")
	}
}
