package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingOrderStore correlaciona órdenes de pago sin confirmar con su
// usuario. Reemplaza el estado de sesión ambiente: la referencia vive en
// el servidor, con TTL corto, y las órdenes abandonadas simplemente
// expiran sin bloquear intentos futuros.
type PendingOrderStore interface {
	Store(orderID, userID string, ttl time.Duration) error
	Lookup(orderID string) (string, bool, error)
	Remove(orderID string) error
}

type memoryOrderStore struct {
	mu    sync.Mutex
	items map[string]pendingOrder
}

type pendingOrder struct {
	userID    string
	expiresAt time.Time
}

func NewMemoryOrderStore() PendingOrderStore {
	return &memoryOrderStore{
		items: make(map[string]pendingOrder),
	}
}

func (s *memoryOrderStore) Store(orderID, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(orderID) == "" {
		return nil
	}
	s.items[orderID] = pendingOrder{
		userID:    userID,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *memoryOrderStore) Lookup(orderID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[orderID]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, orderID)
		return "", false, nil
	}
	return entry.userID, true, nil
}

func (s *memoryOrderStore) Remove(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, orderID)
	return nil
}

type redisOrderStore struct {
	client redisKV
	prefix string
}

func NewRedisOrderStore(client *redis.Client) PendingOrderStore {
	if client == nil {
		return nil
	}
	return &redisOrderStore{
		client: client,
		prefix: "payment:order:",
	}
}

func (s *redisOrderStore) Store(orderID, userID string, ttl time.Duration) error {
	if strings.TrimSpace(orderID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+orderID, userID, ttl).Err()
}

func (s *redisOrderStore) Lookup(orderID string) (string, bool, error) {
	if strings.TrimSpace(orderID) == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	userID, err := s.client.Get(ctx, s.prefix+orderID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *redisOrderStore) Remove(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+orderID).Err()
}
