//go:build integration

package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/testutil/containers"
)

type PostgresQuotaStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
	now   time.Time
}

func TestPostgresQuotaStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresQuotaStoreSuite))
}

func (s *PostgresQuotaStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresQuotaStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresQuotaStoreSuite) insertBuyer(contactLimit *int) id.UserID {
	userID := id.UserID(uuid.New())
	var companyID any
	if contactLimit != nil {
		pkgID, cID := uuid.New(), uuid.New()
		_, err := s.pg.DB.ExecContext(s.ctx, `INSERT INTO packages (id, name, contact_limit) VALUES ($1, 'Gold', $2)`, pkgID, *contactLimit)
		s.Require().NoError(err)
		_, err = s.pg.DB.ExecContext(s.ctx, `INSERT INTO companies (id, name, package_id) VALUES ($1, 'Buyer Co', $2)`, cID, pkgID)
		s.Require().NoError(err)
		companyID = cID
	}
	_, err := s.pg.DB.ExecContext(s.ctx, `
		INSERT INTO users (id, email, name, role, company_id) VALUES ($1, $2, 'Buyer', 'buyer', $3)
	`, userID, userID.String()+"@example.com", companyID)
	s.Require().NoError(err)
	return userID
}

func (s *PostgresQuotaStoreSuite) TestConsumeLifecycle() {
	buyer := s.insertBuyer(nil)
	week := 7 * 24 * time.Hour

	state, allowed, err := s.store.Consume(s.ctx, buyer, 1, s.now, week)
	s.Require().NoError(err)
	s.True(allowed)
	s.Equal(1, state.Count)
	s.WithinDuration(s.now.Add(week), state.ResetAt, time.Millisecond)

	state, allowed, err = s.store.Consume(s.ctx, buyer, 1, s.now.Add(time.Hour), week)
	s.Require().NoError(err)
	s.False(allowed)
	s.Equal(1, state.Count)

	later := s.now.Add(week + time.Second)
	state, allowed, err = s.store.Consume(s.ctx, buyer, 1, later, week)
	s.Require().NoError(err)
	s.True(allowed)
	s.Equal(1, state.Count)
	s.WithinDuration(later.Add(week), state.ResetAt, time.Millisecond)
}

func (s *PostgresQuotaStoreSuite) TestConsumeUnknownUser() {
	_, _, err := s.store.Consume(s.ctx, id.UserID(uuid.New()), 1, s.now, time.Hour)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresQuotaStoreSuite) TestResetAndLimit() {
	limit := 3
	buyer := s.insertBuyer(&limit)

	got, ok, err := s.store.ContactLimit(s.ctx, buyer)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(3, got)

	_, _, err = s.store.Consume(s.ctx, buyer, 3, s.now, time.Hour)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, buyer))

	state, err := s.store.Get(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(0, state.Count)
	s.True(state.ResetAt.IsZero())

	_, ok, err = s.store.ContactLimit(s.ctx, s.insertBuyer(nil))
	s.Require().NoError(err)
	s.False(ok, "buyer without a package falls back to the default")
}

// Justification: the conditional UPDATE is the only guard against two
// concurrent submissions taking the last unit.
func (s *PostgresQuotaStoreSuite) TestConcurrentConsume() {
	buyer := s.insertBuyer(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 20 {
		wg.Go(func() {
			_, ok, err := s.store.Consume(s.ctx, buyer, 2, s.now, time.Hour)
			if err == nil && ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	s.Equal(2, allowed)
}
