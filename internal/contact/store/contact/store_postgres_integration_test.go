//go:build integration

package contact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/fieldcrypt"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
	"supplierhub/pkg/testutil/containers"
)

type PostgresContactStoreSuite struct {
	suite.Suite
	pg        *containers.PostgresContainer
	store     *PostgresStore
	ctx       context.Context
	now       time.Time
	companyID id.CompanyID
	buyerID   id.UserID
}

func TestPostgresContactStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresContactStoreSuite))
}

func (s *PostgresContactStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	cipher, err := fieldcrypt.New("integration-secret")
	s.Require().NoError(err)
	s.store = NewPostgres(s.pg.DB, cipher)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresContactStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
	s.companyID = id.CompanyID(uuid.New())
	s.buyerID = id.UserID(uuid.New())
	_, err := s.pg.DB.ExecContext(s.ctx, `INSERT INTO companies (id, name, verification_status) VALUES ($1, 'Acme Steel', 'verified')`, s.companyID)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(s.ctx, `INSERT INTO users (id, email, name, role) VALUES ($1, 'buyer@example.com', 'Buyer', 'buyer')`, s.buyerID)
	s.Require().NoError(err)
}

func (s *PostgresContactStoreSuite) newContact(buyer id.UserID, at time.Time) *models.ContactRequest {
	c, err := models.NewContactRequest(id.NewContactID(), s.companyID, buyer, "",
		"Need a quote", "Buyer GmbH", "Jane", "jane@buyer.example", "", "DE", at)
	s.Require().NoError(err)
	return c
}

func (s *PostgresContactStoreSuite) TestRoundTripEncryptsAtRest() {
	c := s.newContact(s.buyerID, s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	var rawEmail string
	var rawPhone *string
	s.Require().NoError(s.pg.DB.QueryRowContext(s.ctx, `SELECT email, phone FROM contacts WHERE id = $1`, c.ID).Scan(&rawEmail, &rawPhone))
	s.True(fieldcrypt.IsEncrypted(rawEmail))
	s.Nil(rawPhone, "empty phone is stored as NULL")

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("jane@buyer.example", got.Email)
	s.Equal(s.buyerID, got.BuyerID)
	s.Equal(models.StatusPending, got.Status)
}

func (s *PostgresContactStoreSuite) TestAnonymousBuyerIsNull() {
	c := s.newContact(id.UserID{}, s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))
	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(got.BuyerID.IsNil())
}

func (s *PostgresContactStoreSuite) TestUnknownCompanyIsNotFound() {
	c := s.newContact(s.buyerID, s.now)
	c.CompanyID = id.CompanyID(uuid.New())
	s.ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrNotFound)
}

func (s *PostgresContactStoreSuite) TestExecutePersistsUnlock() {
	c := s.newContact(s.buyerID, s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	fee := decimal.RequireFromString("25.5")
	_, err := s.store.Execute(s.ctx, c.ID,
		func(c *models.ContactRequest) error { return c.CanUnlock() },
		func(c *models.ContactRequest) { c.ApplyUnlock(s.buyerID, &fee, s.now) },
	)
	s.Require().NoError(err)

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(got.IsUnlocked)
	s.Equal(models.StatusUnlocked, got.Status)
	s.Require().NotNil(got.UnlockFee)
	s.Equal("25.50", got.UnlockFee.StringFixed(2))
}

// Justification: FOR UPDATE is what makes two concurrent moderators unable
// to both move the same pending request.
func (s *PostgresContactStoreSuite) TestExecuteSerializesConcurrentTransitions() {
	c := s.newContact(s.buyerID, s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, c.ID,
				func(c *models.ContactRequest) error { return c.CanReject() },
				func(c *models.ContactRequest) { c.ApplyRejection("dup", s.now) },
			)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			failures++
		}
	}
	s.Equal(1, failures)
}

func (s *PostgresContactStoreSuite) TestExecuteJoinsOuterTransaction() {
	c := s.newContact(s.buyerID, s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	mgr := tx.NewPostgresManager(s.pg.DB)
	err := mgr.RunInTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.store.Execute(ctx, c.ID,
			func(c *models.ContactRequest) error { return c.CanRespond() },
			func(c *models.ContactRequest) { c.ApplyResponse("hi", s.now) },
		); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status, "rollback undoes the transition")
}

func (s *PostgresContactStoreSuite) TestListings() {
	for i := range 3 {
		s.Require().NoError(s.store.Create(s.ctx, s.newContact(s.buyerID, s.now.Add(time.Duration(i)*time.Hour))))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.newContact(id.UserID{}, s.now)))

	byBuyer, total, err := s.store.ListByBuyer(s.ctx, s.buyerID, models.NewPage(1))
	s.Require().NoError(err)
	s.Equal(3, total)
	s.True(byBuyer[0].CreatedAt.After(byBuyer[2].CreatedAt))

	_, total, err = s.store.ListByCompany(s.ctx, s.companyID, models.NewPage(1))
	s.Require().NoError(err)
	s.Equal(4, total)

	pending, total, err := s.store.ListByStatus(s.ctx, models.StatusApproved, models.NewPage(1))
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(pending)
}
