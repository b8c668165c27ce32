package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeKV implementa redisKV en memoria para los tests de stores.
type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration

	failing bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("redis down"))
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", errors.New("redis down"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.failing {
		return redis.NewIntResult(0, errors.New("redis down"))
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.failing {
		return redis.NewIntResult(0, errors.New("redis down"))
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisRefreshTokenStore_StoreExistsRevoke(t *testing.T) {
	kv := newFakeKV()
	store := &redisRefreshTokenStore{client: kv, prefix: "auth:refresh:"}

	if err := store.Store("  jti-1  ", "u1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	if kv.ttls["auth:refresh:jti-1"] != time.Hour {
		t.Fatal("ttl not applied")
	}

	ok, err := store.Exists("jti-1")
	if err != nil || !ok {
		t.Fatalf("expected jti to exist, ok=%v err=%v", ok, err)
	}
	if err := store.Revoke("jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = store.Exists("jti-1")
	if err != nil || ok {
		t.Fatalf("expected jti gone, ok=%v err=%v", ok, err)
	}
}

func TestRedisRefreshTokenStore_BlankJTIIsNoop(t *testing.T) {
	kv := newFakeKV()
	store := &redisRefreshTokenStore{client: kv, prefix: "auth:refresh:"}

	if err := store.Store("   ", "u1", time.Hour); err != nil {
		t.Fatalf("store blank: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatal("blank jti must not be stored")
	}
	ok, err := store.Exists("")
	if err != nil || ok {
		t.Fatalf("blank jti must not exist, ok=%v err=%v", ok, err)
	}
}

func TestRedisOrderStore_RoundTrip(t *testing.T) {
	kv := newFakeKV()
	store := &redisOrderStore{client: kv, prefix: "payment:order:"}

	if err := store.Store("order_1", "u1", 30*time.Minute); err != nil {
		t.Fatalf("store: %v", err)
	}
	userID, ok, err := store.Lookup("order_1")
	if err != nil || !ok || userID != "u1" {
		t.Fatalf("lookup: user=%q ok=%v err=%v", userID, ok, err)
	}

	if _, ok, err := store.Lookup("order_missing"); err != nil || ok {
		t.Fatalf("missing order must not resolve, ok=%v err=%v", ok, err)
	}

	if err := store.Remove("order_1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Lookup("order_1"); ok {
		t.Fatal("removed order must not resolve")
	}
}

func TestRedisOrderStore_PropagatesErrors(t *testing.T) {
	kv := newFakeKV()
	kv.failing = true
	store := &redisOrderStore{client: kv, prefix: "payment:order:"}

	if _, _, err := store.Lookup("order_1"); err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestMemoryOrderStore_TTL(t *testing.T) {
	store := NewMemoryOrderStore()
	if err := store.Store("order_1", "u1", 20*time.Millisecond); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, ok, _ := store.Lookup("order_1"); !ok {
		t.Fatal("order should resolve before TTL")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := store.Lookup("order_1"); ok {
		t.Fatal("order should expire after TTL")
	}
}

// fakeEvaler implementa redisEvaler devolviendo un contador fijo.
type fakeEvaler struct {
	count int64
	err   error
}

func (f *fakeEvaler) Eval(_ context.Context, _ string, _ []string, _ ...interface{}) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.count++
	return redis.NewCmdResult(f.count, nil)
}

func TestRedisRateLimiter_AllowsUpToMax(t *testing.T) {
	limiter := &redisRateLimiter{client: &fakeEvaler{}, window: time.Minute, max: 2, prefix: "verify:rl:"}

	if !limiter.Allow("a@example.com") || !limiter.Allow("a@example.com") {
		t.Fatal("first two hits should pass")
	}
	if limiter.Allow("a@example.com") {
		t.Fatal("third hit should be blocked")
	}
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	limiter := &redisRateLimiter{client: &fakeEvaler{err: errors.New("redis down")}, window: time.Minute, max: 1, prefix: "verify:rl:"}
	if !limiter.Allow("a@example.com") {
		t.Fatal("limiter must fail open when redis is unavailable")
	}
}

func TestRedisRateLimiter_BlankKeyBlocked(t *testing.T) {
	limiter := &redisRateLimiter{client: &fakeEvaler{}, window: time.Minute, max: 1, prefix: "verify:rl:"}
	if limiter.Allow("   ") {
		t.Fatal("blank key must be rejected")
	}
}
