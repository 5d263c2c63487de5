package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEvent_Category(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventContactRequested.Category())
	assert.Equal(t, CategoryCompliance, EventContactUnlocked.Category())
	assert.Equal(t, CategorySecurity, EventContactStatusOverridden.Category())
	assert.Equal(t, CategorySecurity, EventContactRateLimited.Category())
	assert.Equal(t, CategoryOperations, EventContactQuotaExceeded.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_new").Category())
}
