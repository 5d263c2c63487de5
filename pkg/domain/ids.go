// Package domain holds value types shared across modules.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects passing a
// CompanyID where a UserID is expected. Construct them from external input
// with the Parse functions, which reject empty, malformed and nil UUIDs.
package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"

	dErrors "supplierhub/pkg/domain-errors"
)

type (
	UserID    uuid.UUID
	CompanyID uuid.UUID
	ContactID uuid.UUID
	PackageID uuid.UUID
)

// maxIDLength bounds input before handing it to uuid.Parse. The longest
// accepted form is the urn:uuid: prefixed one.
const maxIDLength = 45

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company_id")
	return CompanyID(u), err
}

func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s, "contact_id")
	return ContactID(u), err
}

func ParsePackageID(s string) (PackageID, error) {
	u, err := parseUUID(s, "package_id")
	return PackageID(u), err
}

func NewContactID() ContactID { return ContactID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id CompanyID) String() string { return uuid.UUID(id).String() }
func (id ContactID) String() string { return uuid.UUID(id).String() }
func (id PackageID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ContactID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PackageID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets IDs serialize as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CompanyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ContactID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id PackageID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user_id")
	}
	*id = UserID(u)
	return nil
}

func (id *CompanyID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid company_id")
	}
	*id = CompanyID(u)
	return nil
}

func (id *ContactID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid contact_id")
	}
	*id = ContactID(u)
	return nil
}

// Value and Scan map IDs to UUID columns. A nil ID is stored as NULL so
// optional references (an anonymous buyer, a user without a company) need no
// wrapper type.
func (id UserID) Value() (driver.Value, error)    { return nullableUUID(uuid.UUID(id)), nil }
func (id CompanyID) Value() (driver.Value, error) { return nullableUUID(uuid.UUID(id)), nil }
func (id ContactID) Value() (driver.Value, error) { return nullableUUID(uuid.UUID(id)), nil }
func (id PackageID) Value() (driver.Value, error) { return nullableUUID(uuid.UUID(id)), nil }

func (id *UserID) Scan(src any) error    { return scanUUID((*uuid.UUID)(id), src) }
func (id *CompanyID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }
func (id *ContactID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }
func (id *PackageID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

func nullableUUID(u uuid.UUID) driver.Value {
	if u == uuid.Nil {
		return nil
	}
	return u.String()
}

func scanUUID(dst *uuid.UUID, src any) error {
	if src == nil {
		*dst = uuid.Nil
		return nil
	}
	return dst.Scan(src)
}
