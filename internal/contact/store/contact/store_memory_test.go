package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/fieldcrypt"
	"supplierhub/pkg/platform/sentinel"
)

// =============================================================================
// In-memory contact store
// =============================================================================
// Justification: the memory store backs local runs and every service test,
// so it must honour the same contract as Postgres: encrypted PII at rest,
// validate-then-mutate in Execute, and newest-first pagination.

type InMemoryStoreSuite struct {
	suite.Suite
	store     *InMemoryStore
	ctx       context.Context
	companyID id.CompanyID
	now       time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	cipher, err := fieldcrypt.New("test-secret")
	s.Require().NoError(err)
	s.store = NewInMemoryStore(cipher)
	s.ctx = context.Background()
	s.companyID, _ = id.ParseCompanyID("5f1c2a8e-3b7d-4c1a-9e55-2d7f0b6a9c31")
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newContact(at time.Time) *models.ContactRequest {
	c, err := models.NewContactRequest(id.NewContactID(), s.companyID, id.UserID{}, "",
		"Need a quote", "Buyer GmbH", "Jane", "jane@buyer.example", "+49301234567", "DE", at)
	s.Require().NoError(err)
	return c
}

func (s *InMemoryStoreSuite) TestCreateEncryptsPII() {
	c := s.newContact(s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	email, phone, ok := s.store.RawPII(c.ID)
	s.Require().True(ok)
	s.True(fieldcrypt.IsEncrypted(email))
	s.True(fieldcrypt.IsEncrypted(phone))
	s.NotContains(email, "jane")

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("jane@buyer.example", got.Email)
	s.Equal("+49301234567", got.Phone)
}

func (s *InMemoryStoreSuite) TestCreateDuplicateConflicts() {
	c := s.newContact(s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))
	s.ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(s.ctx, id.NewContactID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExecute() {
	c := s.newContact(s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	s.Run("validation failure leaves record untouched", func() {
		boom := errors.New("nope")
		_, err := s.store.Execute(s.ctx, c.ID,
			func(*models.ContactRequest) error { return boom },
			func(c *models.ContactRequest) { c.Status = models.StatusRejected },
		)
		s.ErrorIs(err, boom)
		got, _ := s.store.FindByID(s.ctx, c.ID)
		s.Equal(models.StatusPending, got.Status)
	})

	s.Run("mutation is persisted", func() {
		updated, err := s.store.Execute(s.ctx, c.ID,
			func(c *models.ContactRequest) error { return c.CanRespond() },
			func(c *models.ContactRequest) { c.ApplyResponse("We can help", s.now) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusResponded, updated.Status)

		got, _ := s.store.FindByID(s.ctx, c.ID)
		s.Equal("We can help", got.ResponseMessage)
		s.Equal("jane@buyer.example", got.Email)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.NewContactID(),
			func(*models.ContactRequest) error { return nil },
			func(*models.ContactRequest) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestListPaginatesNewestFirst() {
	for i := range 25 {
		s.Require().NoError(s.store.Create(s.ctx, s.newContact(s.now.Add(time.Duration(i)*time.Minute))))
	}

	first, total, err := s.store.ListByCompany(s.ctx, s.companyID, models.NewPage(1))
	s.Require().NoError(err)
	s.Equal(25, total)
	s.Len(first, 20)
	s.True(first[0].CreatedAt.After(first[19].CreatedAt))

	second, _, err := s.store.ListByCompany(s.ctx, s.companyID, models.NewPage(2))
	s.Require().NoError(err)
	s.Len(second, 5)

	beyond, total, err := s.store.ListByStatus(s.ctx, models.StatusPending, models.NewPage(9))
	s.Require().NoError(err)
	s.Empty(beyond)
	s.Equal(25, total)
}
