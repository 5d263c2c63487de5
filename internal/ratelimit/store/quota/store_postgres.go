package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

// PostgresStore keeps the weekly counter on the users row, so it joins the
// transaction that inserts the contact request.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Consume resets a lapsed window and takes one unit in a single conditional
// UPDATE, so two concurrent submissions cannot both take the last unit.
func (s *PostgresStore) Consume(ctx context.Context, userID id.UserID, limit int, now time.Time, period time.Duration) (models.QuotaState, bool, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	state := models.QuotaState{UserID: userID}

	var resetAt sql.NullTime
	err := exec.QueryRowContext(ctx, `
		UPDATE users SET
			weekly_contact_count = CASE
				WHEN contact_count_reset_at IS NULL OR $2 > contact_count_reset_at THEN 1
				ELSE weekly_contact_count + 1
			END,
			contact_count_reset_at = CASE
				WHEN contact_count_reset_at IS NULL OR $2 > contact_count_reset_at THEN $3
				ELSE contact_count_reset_at
			END
		WHERE id = $1
		  AND ($4 <= 0
		       OR contact_count_reset_at IS NULL
		       OR $2 > contact_count_reset_at
		       OR weekly_contact_count < $4)
		RETURNING weekly_contact_count, contact_count_reset_at
	`, userID, now, now.Add(period), limit).Scan(&state.Count, &resetAt)
	if err == nil {
		state.ResetAt = resetAt.Time
		return state, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.QuotaState{}, false, fmt.Errorf("consume contact quota: %w", err)
	}

	// No row updated: either the buyer is unknown or the allowance is spent.
	current, err := s.Get(ctx, userID)
	if err != nil {
		return models.QuotaState{}, false, err
	}
	return current, false, nil
}

// Get returns sentinel.ErrNotFound for an unknown user.
func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (models.QuotaState, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	state := models.QuotaState{UserID: userID}

	var resetAt sql.NullTime
	err := exec.QueryRowContext(ctx, `
		SELECT weekly_contact_count, contact_count_reset_at FROM users WHERE id = $1
	`, userID).Scan(&state.Count, &resetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QuotaState{}, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.QuotaState{}, fmt.Errorf("get contact quota: %w", err)
	}
	state.ResetAt = resetAt.Time
	return state, nil
}

func (s *PostgresStore) Reset(ctx context.Context, userID id.UserID) error {
	exec := tx.ExecutorFrom(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE users SET weekly_contact_count = 0, contact_count_reset_at = NULL WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("reset contact quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset contact quota: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return nil
}

// ContactLimit resolves the limit from the package of the buyer's company.
func (s *PostgresStore) ContactLimit(ctx context.Context, userID id.UserID) (int, bool, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	var limit sql.NullInt64
	err := exec.QueryRowContext(ctx, `
		SELECT p.contact_limit
		FROM users u
		LEFT JOIN companies c ON c.id = u.company_id
		LEFT JOIN packages p ON p.id = c.package_id
		WHERE u.id = $1
	`, userID).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve contact limit: %w", err)
	}
	if !limit.Valid {
		return 0, false, nil
	}
	return int(limit.Int64), true, nil
}
