//go:build integration

package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
	"supplierhub/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	pg        *containers.PostgresContainer
	companies *PostgresCompanies
	users     *PostgresUsers
	ctx       context.Context
	companyID id.CompanyID
}

func TestPostgresDirectorySuite(t *testing.T) {
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.companies = NewPostgresCompanies(s.pg.DB)
	s.users = NewPostgresUsers(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresDirectorySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
	s.companyID = id.CompanyID(uuid.New())
	_, err := s.pg.DB.ExecContext(s.ctx, `
		INSERT INTO companies (id, name, verification_status, contact_email, contact_phone, rating)
		VALUES ($1, 'Acme Steel', 'verified', 'sales@acme.example', '+49 30 1234567', 4.50)
	`, s.companyID)
	s.Require().NoError(err)
}

func (s *PostgresDirectorySuite) insertUser(email string, role id.Role, company id.CompanyID, createdAt time.Time) id.UserID {
	userID := id.UserID(uuid.New())
	_, err := s.pg.DB.ExecContext(s.ctx, `
		INSERT INTO users (id, email, name, role, company_id, created_at)
		VALUES ($1, $2, '', $3, $4, $5)
	`, userID, email, string(role), company, createdAt)
	s.Require().NoError(err)
	return userID
}

func (s *PostgresDirectorySuite) TestFindCompany() {
	s.Run("scans every column", func() {
		c, err := s.companies.FindByID(s.ctx, s.companyID)
		s.Require().NoError(err)
		s.Equal("Acme Steel", c.Name)
		s.Equal(models.VerificationVerified, c.VerificationStatus)
		s.False(c.ShowContactInfo)
		s.Equal("sales@acme.example", c.ContactEmail)
		s.True(c.Rating.Equal(decimal.RequireFromString("4.5")))
		s.True(c.PackageID.IsNil(), "NULL package scans to the nil ID")
	})

	s.Run("unknown company is not found", func() {
		_, err := s.companies.FindByID(s.ctx, id.CompanyID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresDirectorySuite) TestSetShowContactInfo() {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	c, err := s.companies.SetShowContactInfo(s.ctx, s.companyID, true, now)
	s.Require().NoError(err)
	s.True(c.ShowContactInfo)
	s.True(c.UpdatedAt.Equal(now))

	_, err = s.companies.SetShowContactInfo(s.ctx, id.CompanyID(uuid.New()), true, now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Justification: the flag flip must roll back with the contact change that
// requested it.
func (s *PostgresDirectorySuite) TestSetShowContactInfoJoinsTransaction() {
	mgr := tx.NewPostgresManager(s.pg.DB)
	err := mgr.RunInTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.companies.SetShowContactInfo(ctx, s.companyID, true, time.Now()); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	})
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	c, err := s.companies.FindByID(s.ctx, s.companyID)
	s.Require().NoError(err)
	s.False(c.ShowContactInfo)
}

func (s *PostgresDirectorySuite) TestFirstSupplierIsEarliestAccount() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.insertUser("buyer@acme.example", id.RoleBuyer, s.companyID, base.Add(-time.Hour))
	later := s.insertUser("second@acme.example", id.RoleSupplier, s.companyID, base.Add(time.Hour))
	first := s.insertUser("first@acme.example", id.RoleSupplier, s.companyID, base)

	u, err := s.users.FirstSupplier(s.ctx, s.companyID)
	s.Require().NoError(err)
	s.Equal(first, u.ID)
	s.Equal(id.RoleSupplier, u.Role)
	s.Equal(s.companyID, u.CompanyID)

	byID, err := s.users.FindByID(s.ctx, later)
	s.Require().NoError(err)
	s.Equal("second@acme.example", byID.Email)
}

func (s *PostgresDirectorySuite) TestMissingUsers() {
	_, err := s.users.FirstSupplier(s.ctx, s.companyID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.users.FindByID(s.ctx, id.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
