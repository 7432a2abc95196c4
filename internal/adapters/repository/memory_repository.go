package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

type InMemorySessionRepository struct {
	store map[string][]*domain.SessionRecord

	mu sync.RWMutex
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		store: make(map[string][]*domain.SessionRecord),
	}
}

func (r *InMemorySessionRepository) Append(ctx context.Context, record *domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *record
	r.store[record.UserID] = append(r.store[record.UserID], &cp)
	return nil
}

func (r *InMemorySessionRepository) PruneBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.store[userID]
	kept := records[:0]
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	dropped := int64(len(records) - len(kept))
	r.store[userID] = kept
	return dropped, nil
}

func (r *InMemorySessionRepository) ListByUserID(ctx context.Context, userID string, since time.Time) ([]*domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.SessionRecord
	for _, rec := range r.store[userID] {
		if !rec.Timestamp.Before(since) {
			cp := *rec
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type userCounters struct {
	focus        domain.FocusStats
	breathe      domain.BreatheStats
	sleep        domain.SleepStats
	lastActivity time.Time
	streak       domain.StreakSnapshot
}

type InMemoryCounterStore struct {
	store map[string]*userCounters

	mu sync.RWMutex
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		store: make(map[string]*userCounters),
	}
}

func (s *InMemoryCounterStore) read(userID string) userCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.store[userID]; ok {
		return *c
	}
	return userCounters{}
}

func (s *InMemoryCounterStore) write(userID string, fn func(c *userCounters)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.store[userID]
	if !ok {
		c = &userCounters{}
		s.store[userID] = c
	}
	fn(c)
	return nil
}

func (s *InMemoryCounterStore) GetFocusStats(ctx context.Context, userID string) (domain.FocusStats, error) {
	return s.read(userID).focus, nil
}

func (s *InMemoryCounterStore) SaveFocusStats(ctx context.Context, userID string, stats domain.FocusStats) error {
	return s.write(userID, func(c *userCounters) { c.focus = stats })
}

func (s *InMemoryCounterStore) GetBreatheStats(ctx context.Context, userID string) (domain.BreatheStats, error) {
	return s.read(userID).breathe, nil
}

func (s *InMemoryCounterStore) SaveBreatheStats(ctx context.Context, userID string, stats domain.BreatheStats) error {
	return s.write(userID, func(c *userCounters) { c.breathe = stats })
}

func (s *InMemoryCounterStore) GetSleepStats(ctx context.Context, userID string) (domain.SleepStats, error) {
	return s.read(userID).sleep, nil
}

func (s *InMemoryCounterStore) SaveSleepStats(ctx context.Context, userID string, stats domain.SleepStats) error {
	return s.write(userID, func(c *userCounters) { c.sleep = stats })
}

func (s *InMemoryCounterStore) GetLastActivity(ctx context.Context, userID string) (time.Time, error) {
	return s.read(userID).lastActivity, nil
}

func (s *InMemoryCounterStore) SetLastActivity(ctx context.Context, userID string, at time.Time) error {
	return s.write(userID, func(c *userCounters) { c.lastActivity = at.UTC() })
}

func (s *InMemoryCounterStore) GetStreakSnapshot(ctx context.Context, userID string) (domain.StreakSnapshot, error) {
	return s.read(userID).streak, nil
}

func (s *InMemoryCounterStore) SaveStreakSnapshot(ctx context.Context, userID string, snap domain.StreakSnapshot) error {
	return s.write(userID, func(c *userCounters) { c.streak = snap })
}

type InMemoryUserRepository struct {
	byID map[string]*domain.User

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID: make(map[string]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.byID[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}
