package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"diecast-collector/internal/domain"
)

// Fakes en memoria compartidos por los tests del paquete. Implementan
// los mismos contratos que las implementaciones de pgx, incluida la
// semántica de pgx.ErrNoRows.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User

	createErr error
	deleteErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *memUserRepo) SetEmailVerified(_ context.Context, id string, verifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.EmailVerifiedAt = &verifiedAt
	r.users[id] = u
	return nil
}

func (r *memUserRepo) setActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return
	}
	u.Active = true
	r.users[id] = u
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) ListStale(_ context.Context, cutoff time.Time) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []domain.User
	for _, u := range r.users {
		if !u.Active && u.CreatedAt.Before(cutoff) {
			stale = append(stale, u)
		}
	}
	return stale, nil
}

func (r *memUserRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, u := range r.users {
		if !u.Active && u.CreatedAt.Before(cutoff) {
			delete(r.users, id)
			deleted++
		}
	}
	return deleted, nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.VerificationToken

	createErr error
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]domain.VerificationToken)}
}

func (r *memTokenRepo) Create(_ context.Context, token domain.VerificationToken) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Value] = token
	return nil
}

func (r *memTokenRepo) GetByValue(_ context.Context, value string) (domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[value]
	if !ok {
		return domain.VerificationToken{}, pgx.ErrNoRows
	}
	return t, nil
}

// Consume replica el check-and-flip atómico bajo el mismo lock.
func (r *memTokenRepo) Consume(_ context.Context, value string, now time.Time) (domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[value]
	if !ok || t.Used || !t.ExpiresAt.After(now) {
		return domain.VerificationToken{}, pgx.ErrNoRows
	}
	t.Used = true
	r.tokens[value] = t
	return t, nil
}

func (r *memTokenRepo) InvalidateForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for value, t := range r.tokens {
		if t.UserID == userID && !t.Used {
			delete(r.tokens, value)
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for value, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, value)
		}
	}
	return nil
}

func (r *memTokenRepo) forUser(userID string) []domain.VerificationToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.VerificationToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type memSubscriptionRepo struct {
	mu       sync.Mutex
	subs     map[string]domain.Subscription
	payments map[string]bool

	// users, si está presente, recibe el flag active junto con el asiento.
	users *memUserRepo
}

func newMemSubscriptionRepo(users *memUserRepo) *memSubscriptionRepo {
	return &memSubscriptionRepo{
		subs:     make(map[string]domain.Subscription),
		payments: make(map[string]bool),
		users:    users,
	}
}

func (r *memSubscriptionRepo) GetByUserID(_ context.Context, userID string) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return domain.Subscription{}, pgx.ErrNoRows
	}
	return sub, nil
}

func (r *memSubscriptionRepo) ApplyPayment(_ context.Context, userID, orderID, paymentID string, now time.Time, period time.Duration) (domain.Subscription, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payments[orderID] {
		return r.subs[userID], false, nil
	}
	r.payments[orderID] = true

	sub, ok := r.subs[userID]
	if !ok {
		sub = domain.Subscription{
			ID:         "sub-" + userID,
			UserID:     userID,
			StartDate:  now,
			EndDate:    now.Add(period),
			AutoRenew:  true,
			PaymentRef: orderID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	} else {
		sub.EndDate = sub.ExtendedEnd(now, period)
		sub.PaymentRef = orderID
		sub.UpdatedAt = now
	}
	r.subs[userID] = sub
	if r.users != nil {
		r.users.setActive(userID)
	}
	return sub, true, nil
}

func (r *memSubscriptionRepo) SetAutoRenew(_ context.Context, userID string, autoRenew bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	sub.AutoRenew = autoRenew
	r.subs[userID] = sub
	return nil
}

func (r *memSubscriptionRepo) put(sub domain.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.UserID] = sub
}

type memPreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]domain.NotificationPreferences

	upsertErr error
}

func newMemPreferenceRepo() *memPreferenceRepo {
	return &memPreferenceRepo{prefs: make(map[string]domain.NotificationPreferences)}
}

func (r *memPreferenceRepo) GetByUserID(_ context.Context, userID string) (domain.NotificationPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[userID]
	if !ok {
		return domain.NotificationPreferences{}, pgx.ErrNoRows
	}
	return p, nil
}

func (r *memPreferenceRepo) Upsert(_ context.Context, prefs domain.NotificationPreferences) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[prefs.UserID] = prefs
	return nil
}

type memCarRepo struct {
	mu   sync.Mutex
	cars []domain.DiecastCar
}

func newMemCarRepo(cars ...domain.DiecastCar) *memCarRepo {
	return &memCarRepo{cars: cars}
}

func (r *memCarRepo) ListByUser(_ context.Context, userID string) ([]domain.DiecastCar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DiecastCar
	for _, c := range r.cars {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCarRepo) ListUndeliveredByUser(_ context.Context, userID string) ([]domain.DiecastCar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DiecastCar
	for _, c := range r.cars {
		if c.UserID == userID && c.DeliveredDate == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCarRepo) ListUserIDsWithPending(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, c := range r.cars {
		if c.DeliveredDate == nil && !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	return ids, nil
}

func (r *memCarRepo) MarkDelivered(_ context.Context, id, userID string, deliveredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.cars {
		if c.ID == id && c.UserID == userID {
			r.cars[i].DeliveredDate = &deliveredAt
			r.cars[i].Status = "Delivered"
			return nil
		}
	}
	return pgx.ErrNoRows
}

type recordingSender struct {
	mu sync.Mutex

	links  []string
	alerts []string

	linkErr  error
	alertErr error
}

func (s *recordingSender) SendVerificationLink(_ context.Context, _, link string, _ time.Time) error {
	if s.linkErr != nil {
		return s.linkErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, link)
	return nil
}

func (s *recordingSender) SendDeliveryAlert(_ context.Context, toEmail string, _, _ []domain.DiecastCar) error {
	if s.alertErr != nil {
		return s.alertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, toEmail)
	return nil
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }
