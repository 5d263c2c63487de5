package contact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

type record struct {
	contact models.ContactRequest // Email and Phone cleared
	pii     sealed
}

// InMemoryStore keeps encrypted records in a map. It is used for local runs
// and tests; Execute serializes on one mutex the way the Postgres store
// serializes on a row lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	cipher  Cipher
	records map[id.ContactID]*record
}

func NewInMemoryStore(cipher Cipher) *InMemoryStore {
	return &InMemoryStore{cipher: cipher, records: make(map[id.ContactID]*record)}
}

func (s *InMemoryStore) toRecord(c *models.ContactRequest) (*record, error) {
	pii, err := seal(s.cipher, c)
	if err != nil {
		return nil, err
	}
	r := &record{contact: *c, pii: pii}
	r.contact.Email, r.contact.Phone = "", ""
	return r, nil
}

func (s *InMemoryStore) fromRecord(r *record) (*models.ContactRequest, error) {
	c := r.contact
	if err := open(s.cipher, &c, r.pii); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *InMemoryStore) Create(ctx context.Context, c *models.ContactRequest) error {
	r, err := s.toRecord(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[c.ID]; exists {
		return fmt.Errorf("contact %s: %w", c.ID, sentinel.ErrConflict)
	}
	s.records[c.ID] = r
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.records, c.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, contactID id.ContactID) (*models.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[contactID]
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", contactID, sentinel.ErrNotFound)
	}
	return s.fromRecord(r)
}

func (s *InMemoryStore) Execute(ctx context.Context, contactID id.ContactID,
	validate func(*models.ContactRequest) error,
	mutate func(*models.ContactRequest),
) (*models.ContactRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[contactID]
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", contactID, sentinel.ErrNotFound)
	}
	c, err := s.fromRecord(r)
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	updated, err := s.toRecord(c)
	if err != nil {
		return nil, err
	}
	s.records[contactID] = updated
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[contactID] = r
	})
	return c, nil
}

func (s *InMemoryStore) ListByCompany(_ context.Context, companyID id.CompanyID, page models.Page) ([]*models.ContactRequest, int, error) {
	return s.list(page, func(c *models.ContactRequest) bool { return c.CompanyID == companyID })
}

func (s *InMemoryStore) ListByBuyer(_ context.Context, buyerID id.UserID, page models.Page) ([]*models.ContactRequest, int, error) {
	if buyerID.IsNil() {
		return nil, 0, errors.New("buyer id is required")
	}
	return s.list(page, func(c *models.ContactRequest) bool { return c.BuyerID == buyerID })
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status, page models.Page) ([]*models.ContactRequest, int, error) {
	return s.list(page, func(c *models.ContactRequest) bool { return c.Status == status })
}

func (s *InMemoryStore) list(page models.Page, match func(*models.ContactRequest) bool) ([]*models.ContactRequest, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*record
	for _, r := range s.records {
		if match(&r.contact) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].contact.CreatedAt.After(matched[j].contact.CreatedAt)
	})

	total := len(matched)
	start := max(0, min(page.Offset(), total))
	end := min(start+page.Size, total)

	out := make([]*models.ContactRequest, 0, end-start)
	for _, r := range matched[start:end] {
		c, err := s.fromRecord(r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, nil
}

// RawPII returns the stored ciphertexts of a record. Tests use it to check
// that plaintext never reaches storage.
func (s *InMemoryStore) RawPII(contactID id.ContactID) (email, phone string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[contactID]
	if !ok {
		return "", "", false
	}
	return r.pii.email, r.pii.phone, true
}
