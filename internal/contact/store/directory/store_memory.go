// Package directory reads the supplier directory side of the schema:
// companies and the user accounts that belong to them.
package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

// InMemoryStore serves both CompanyStore and UserStore.
type InMemoryStore struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]models.Company
	users     map[id.UserID]models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		companies: make(map[id.CompanyID]models.Company),
		users:     make(map[id.UserID]models.User),
	}
}

// SaveCompany inserts or replaces a company.
func (s *InMemoryStore) SaveCompany(c *models.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = *c
}

// SaveUser inserts or replaces a user.
func (s *InMemoryStore) SaveUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
}

func (s *InMemoryStore) FindByID(_ context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", companyID, sentinel.ErrNotFound)
	}
	return &c, nil
}

func (s *InMemoryStore) SetShowContactInfo(ctx context.Context, companyID id.CompanyID, show bool, now time.Time) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", companyID, sentinel.ErrNotFound)
	}
	prev := c
	c.ShowContactInfo = show
	c.UpdatedAt = now
	s.companies[companyID] = c
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.companies[companyID] = prev
	})
	return &c, nil
}

// Users returns the user half of the store so it can be passed where a
// UserStore is expected; the method sets collide on FindByID.
func (s *InMemoryStore) Users() *InMemoryUsers {
	return &InMemoryUsers{store: s}
}

type InMemoryUsers struct {
	store *InMemoryStore
}

func (u *InMemoryUsers) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	user, ok := u.store.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return &user, nil
}

func (u *InMemoryUsers) FirstSupplier(_ context.Context, companyID id.CompanyID) (*models.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	var first *models.User
	for _, user := range u.store.users {
		if user.Role != id.RoleSupplier || user.CompanyID != companyID {
			continue
		}
		if first == nil || user.CreatedAt.Before(first.CreatedAt) {
			candidate := user
			first = &candidate
		}
	}
	if first == nil {
		return nil, fmt.Errorf("supplier for company %s: %w", companyID, sentinel.ErrNotFound)
	}
	return first, nil
}
