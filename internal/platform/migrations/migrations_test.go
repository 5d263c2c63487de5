package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_SortedAndComplete(t *testing.T) {
	ms, err := List()
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, "0001_directory", ms[0].Version)
	assert.Equal(t, "0002_contacts", ms[1].Version)
	assert.Equal(t, "0003_audit_outbox", ms[2].Version)
	assert.Contains(t, ms[1].SQL, "CREATE TABLE IF NOT EXISTS contacts")
}
