package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
)

// PostgresCompanies reads and updates the companies table.
type PostgresCompanies struct {
	db *sql.DB
}

func NewPostgresCompanies(db *sql.DB) *PostgresCompanies {
	return &PostgresCompanies{db: db}
}

const companyColumns = `id, name, verification_status, show_contact_info, contact_email,
	contact_phone, rating, package_id, created_at, updated_at`

func (s *PostgresCompanies) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	c, err := scanCompany(exec.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", companyID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	return c, nil
}

// SetShowContactInfo joins a transaction in ctx so the flag flips together
// with the contact status change that asked for it.
func (s *PostgresCompanies) SetShowContactInfo(ctx context.Context, companyID id.CompanyID, show bool, now time.Time) (*models.Company, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	c, err := scanCompany(exec.QueryRowContext(ctx, `
		UPDATE companies SET show_contact_info = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+companyColumns, companyID, show, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", companyID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update company visibility: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(row scanner) (*models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.Name, &c.VerificationStatus, &c.ShowContactInfo, &c.ContactEmail,
		&c.ContactPhone, &c.Rating, &c.PackageID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// PostgresUsers reads the users table.
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

const userColumns = `id, email, name, role, company_id, created_at`

func (s *PostgresUsers) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	u, err := scanUser(exec.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresUsers) FirstSupplier(ctx context.Context, companyID id.CompanyID) (*models.User, error) {
	exec := tx.ExecutorFrom(ctx, s.db)
	u, err := scanUser(exec.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE company_id = $1 AND role = 'supplier'
		ORDER BY created_at, id
		LIMIT 1
	`, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("supplier for company %s: %w", companyID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find company supplier: %w", err)
	}
	return u, nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CompanyID, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
