package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "supplierhub/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries. Per testing.md, unit tests are allowed for invariants.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	companyID := CompanyID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = companyID   // compile error
	// var _ CompanyID = userID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(companyID))
}

// TestCrossTypeAssignment_CompileTimeInvariant documents the compile-time invariant.
// If someone removes type safety, this test's comments become incorrect.
//
// Justification: Documents security invariant - typed IDs prevent cross-type assignment.
func TestCrossTypeAssignment_CompileTimeInvariant(t *testing.T) {
	// The following would fail to compile:
	// var uid UserID = CompanyID(uuid.New())  // type mismatch
	// var cid CompanyID = UserID(uuid.New())  // type mismatch
	// acceptsUserID(ContactID(uuid.New()))    // argument type mismatch

	// This test documents the invariant. If types become aliases,
	// these assignments would compile and the invariant is broken.
	t.Log("Typed IDs prevent cross-type assignment at compile time")
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
//
// Justification: These are trust boundary invariants - parsing must reject
// attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		// Note: uuid.Parse trims whitespace, so " uuid " is accepted as valid

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestCompanyOwnership_DistinctIDs encodes the ownership invariant:
// "A supplier of company A must never act on contacts addressed to company B"
//
// Justification: Enforcement lives in the contact service, but typed IDs make
// the company comparison explicit at every call site.
func TestCompanyOwnership_DistinctIDs(t *testing.T) {
	companyA := CompanyID(uuid.New())
	companyB := CompanyID(uuid.New())

	assert.NotEqual(t, companyA, companyB, "Different companies must have different IDs")
	assert.NotEqual(t, uuid.UUID(companyA), uuid.UUID(companyB), "UUID values must differ")
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
//
// Justification: Inconsistent validation across ID types could create security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	// All types should accept valid UUID
	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errUser := ParseUserID(validUUID)
		_, errCompany := ParseCompanyID(validUUID)
		_, errContact := ParseContactID(validUUID)
		_, errPackage := ParsePackageID(validUUID)

		require.NoError(t, errUser)
		require.NoError(t, errCompany)
		require.NoError(t, errContact)
		require.NoError(t, errPackage)
	})

	// All types should reject invalid inputs identically
	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errCompany := ParseCompanyID(input)
			_, errContact := ParseContactID(input)
			_, errPackage := ParsePackageID(input)

			require.Error(t, errUser)
			require.Error(t, errCompany)
			require.Error(t, errContact)
			require.Error(t, errPackage)
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Run("accepts known roles", func(t *testing.T) {
		for _, raw := range []string{"buyer", "supplier", "admin"} {
			r, err := ParseRole(raw)
			require.NoError(t, err)
			assert.Equal(t, Role(raw), r)
		}
	})

	t.Run("rejects empty and unknown roles", func(t *testing.T) {
		for _, raw := range []string{"", "owner", "ADMIN"} {
			_, err := ParseRole(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestIDs_SQLRoundTrip(t *testing.T) {
	raw := uuid.New()

	v, err := UserID(raw).Value()
	require.NoError(t, err)
	assert.Equal(t, raw.String(), v)

	v, err = CompanyID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "nil ID maps to NULL")

	var scanned ContactID
	require.NoError(t, scanned.Scan(raw.String()))
	assert.Equal(t, ContactID(raw), scanned)

	var fromNull CompanyID
	require.NoError(t, fromNull.Scan(nil))
	assert.True(t, fromNull.IsNil())
}
