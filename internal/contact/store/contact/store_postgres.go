package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const contactColumns = `
	id, company_id, buyer_id, subject, message, company_name, contact_person,
	email, phone, country, status, response_message, responded_at,
	is_unlocked, unlocked_at, unlocked_by, unlock_fee, admin_notes,
	receiver_id, forwarded_at, created_at, updated_at`

// PostgresStore persists contact requests in the contacts table.
type PostgresStore struct {
	db     *sql.DB
	cipher Cipher
}

func NewPostgres(db *sql.DB, cipher Cipher) *PostgresStore {
	return &PostgresStore{db: db, cipher: cipher}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.ContactRequest) error {
	pii, err := seal(s.cipher, c)
	if err != nil {
		return err
	}
	exec := tx.ExecutorFrom(ctx, s.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`,
		c.ID, c.CompanyID, c.BuyerID, c.Subject, c.Message, c.CompanyName, c.ContactPerson,
		pii.email, nullString(pii.phone), c.Country, c.Status, nullString(c.ResponseMessage), c.RespondedAt,
		c.IsUnlocked, c.UnlockedAt, c.UnlockedBy, nullDecimal(c.UnlockFee), nullString(c.AdminNotes),
		c.ReceiverID, c.ForwardedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, c.ID)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contactID id.ContactID) (*models.ContactRequest, error) {
	return s.find(ctx, tx.ExecutorFrom(ctx, s.db), contactID, false)
}

func (s *PostgresStore) find(ctx context.Context, exec tx.Executor, contactID id.ContactID, forUpdate bool) (*models.ContactRequest, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := s.scan(exec.QueryRowContext(ctx, query, contactID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", contactID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return c, nil
}

// Execute locks the row with SELECT ... FOR UPDATE. It joins a transaction
// carried in ctx, or opens its own.
func (s *PostgresStore) Execute(ctx context.Context, contactID id.ContactID,
	validate func(*models.ContactRequest) error,
	mutate func(*models.ContactRequest),
) (*models.ContactRequest, error) {
	var out *models.ContactRequest
	err := s.inTx(ctx, func(ctx context.Context, exec tx.Executor) error {
		c, err := s.find(ctx, exec, contactID, true)
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		if err := s.update(ctx, exec, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// update writes the mutable lifecycle columns. The submitted details,
// including the encrypted email and phone, never change after insert.
func (s *PostgresStore) update(ctx context.Context, exec tx.Executor, c *models.ContactRequest) error {
	_, err := exec.ExecContext(ctx, `
		UPDATE contacts SET
			status = $2,
			response_message = $3,
			responded_at = $4,
			is_unlocked = $5,
			unlocked_at = $6,
			unlocked_by = $7,
			unlock_fee = $8,
			admin_notes = $9,
			receiver_id = $10,
			forwarded_at = $11,
			updated_at = $12
		WHERE id = $1
	`,
		c.ID, c.Status, nullString(c.ResponseMessage), c.RespondedAt,
		c.IsUnlocked, c.UnlockedAt, c.UnlockedBy, nullDecimal(c.UnlockFee),
		nullString(c.AdminNotes), c.ReceiverID, c.ForwardedAt, c.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, c.ID)
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context, exec tx.Executor) error) error {
	if t, ok := tx.From(ctx); ok {
		return fn(ctx, t)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contact update: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := fn(tx.WithTx(ctx, sqlTx), sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *PostgresStore) ListByCompany(ctx context.Context, companyID id.CompanyID, page models.Page) ([]*models.ContactRequest, int, error) {
	return s.list(ctx, `company_id = $1`, companyID, page)
}

func (s *PostgresStore) ListByBuyer(ctx context.Context, buyerID id.UserID, page models.Page) ([]*models.ContactRequest, int, error) {
	if buyerID.IsNil() {
		return nil, 0, errors.New("buyer id is required")
	}
	return s.list(ctx, `buyer_id = $1`, buyerID, page)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status, page models.Page) ([]*models.ContactRequest, int, error) {
	return s.list(ctx, `status = $1`, status, page)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg any, page models.Page) ([]*models.ContactRequest, int, error) {
	exec := tx.ExecutorFrom(ctx, s.db)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT count(*) FROM contacts WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE `+where+`
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, arg, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []*models.ContactRequest
	for rows.Next() {
		c, err := s.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scan(row scanner) (*models.ContactRequest, error) {
	var (
		c                                  models.ContactRequest
		pii                                sealed
		phone, response, notes             sql.NullString
		respondedAt, unlockedAt, forwarded sql.NullTime
		fee                                decimal.NullDecimal
	)
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.BuyerID, &c.Subject, &c.Message, &c.CompanyName, &c.ContactPerson,
		&pii.email, &phone, &c.Country, &c.Status, &response, &respondedAt,
		&c.IsUnlocked, &unlockedAt, &c.UnlockedBy, &fee, &notes,
		&c.ReceiverID, &forwarded, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pii.phone = phone.String
	c.ResponseMessage = response.String
	c.AdminNotes = notes.String
	c.RespondedAt = timePtr(respondedAt)
	c.UnlockedAt = timePtr(unlockedAt)
	c.ForwardedAt = timePtr(forwarded)
	if fee.Valid {
		c.UnlockFee = &fee.Decimal
	}
	if err := open(s.cipher, &c, pii); err != nil {
		return nil, err
	}
	return &c, nil
}

func mapWriteError(err error, contactID id.ContactID) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("contact %s: %w", contactID, sentinel.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("contact %s references missing %s: %w", contactID, pqErr.Constraint, sentinel.ErrNotFound)
		}
	}
	return fmt.Errorf("write contact: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
