package quota

import (
	"context"
	"sync"
	"time"

	"supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

// InMemoryQuotaStore keeps weekly counters in a map. Unknown buyers are
// created on first Consume.
type InMemoryQuotaStore struct {
	mu     sync.Mutex
	quotas map[id.UserID]models.QuotaState
	// limits holds per-buyer package limits for the in-memory LimitResolver.
	limits map[id.UserID]int
}

func New() *InMemoryQuotaStore {
	return &InMemoryQuotaStore{
		quotas: make(map[id.UserID]models.QuotaState),
		limits: make(map[id.UserID]int),
	}
}

func (s *InMemoryQuotaStore) Consume(ctx context.Context, userID id.UserID, limit int, now time.Time, period time.Duration) (models.QuotaState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.quotas[userID]
	state := prev
	state.UserID = userID
	if state.Expired(now) {
		state.Count = 0
		state.ResetAt = now.Add(period)
	} else if limit > 0 && state.Count >= limit {
		return s.quotas[userID], false, nil
	}
	state.Count++
	s.quotas[userID] = state
	tx.OnRollback(ctx, func() { s.restore(userID, prev, existed) })
	return state, true, nil
}

func (s *InMemoryQuotaStore) Get(_ context.Context, userID id.UserID) (models.QuotaState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.quotas[userID]
	state.UserID = userID
	return state, nil
}

func (s *InMemoryQuotaStore) Reset(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.quotas[userID]
	s.quotas[userID] = models.QuotaState{UserID: userID}
	tx.OnRollback(ctx, func() { s.restore(userID, prev, existed) })
	return nil
}

func (s *InMemoryQuotaStore) restore(userID id.UserID, prev models.QuotaState, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existed {
		s.quotas[userID] = prev
		return
	}
	delete(s.quotas, userID)
}

// SetContactLimit records the package limit a buyer is entitled to.
func (s *InMemoryQuotaStore) SetContactLimit(userID id.UserID, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[userID] = limit
}

// ContactLimit implements LimitResolver for in-memory deployments.
func (s *InMemoryQuotaStore) ContactLimit(_ context.Context, userID id.UserID) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit, ok := s.limits[userID]
	return limit, ok, nil
}

// Seed overwrites a buyer's stored state. Returns sentinel.ErrInvalidState
// for a negative count.
func (s *InMemoryQuotaStore) Seed(state models.QuotaState) error {
	if state.Count < 0 {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[state.UserID] = state
	return nil
}
