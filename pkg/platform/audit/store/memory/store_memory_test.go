package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "supplierhub/pkg/domain"
	audit "supplierhub/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	buyer := id.UserID(uuid.New())

	require.NoError(t, store.Append(ctx, audit.Event{UserID: buyer, Action: string(audit.EventContactRequested)}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventContactRateLimited)}))
	require.NoError(t, store.Append(ctx, audit.Event{UserID: buyer, Action: string(audit.EventContactQuotaExceeded)}))

	byUser, err := store.ListByUser(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, string(audit.EventContactQuotaExceeded), recent[0].Action)
	assert.Equal(t, string(audit.EventContactRateLimited), recent[1].Action)

	assert.Len(t, store.ListByAction(ctx, audit.EventContactRateLimited), 1)

	store.Clear()
	recent, err = store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
