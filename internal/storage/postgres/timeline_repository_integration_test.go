package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewTimelineRepository(store)

	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	events := []domain.TimelineEvent{
		{OrderID: "order-1", Type: domain.EventOrderStatusChanged, Reason: "status changed from created to confirmed", Occurred: at.Add(time.Minute)},
		{OrderID: "order-1", Type: domain.EventOrderCreated, Reason: "order created", Occurred: at},
		{OrderID: "order-2", Type: domain.EventOrderCreated, Reason: "other order", Occurred: at},
	}
	for _, e := range events {
		require.NoError(t, repo.Append(e))
	}

	got, err := repo.List("order-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events[1], got[0], "earlier occurred goes first regardless of insert order")
	assert.Equal(t, events[0], got[1])

	empty, err := repo.List("unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.ErrorIs(t, repo.Append(domain.TimelineEvent{Type: domain.EventOrderCreated}), domain.ErrValidation)
}

func TestTimelineRepository_PostgresEqualTimestampsKeepInsertOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewTimelineRepository(store)

	at := time.Date(2026, 5, 4, 9, 30, 0, 123456789, time.UTC)
	types := []string{
		domain.EventOrderCreated,
		domain.EventOrderLineAdded,
		domain.EventOrderLineQuantityUpdated,
		domain.EventOrderLineRemoved,
		domain.EventOrderStatusChanged,
	}
	for _, eventType := range types {
		require.NoError(t, repo.Append(domain.TimelineEvent{OrderID: "order-3", Type: eventType, Occurred: at}))
	}

	got, err := repo.List("order-3")
	require.NoError(t, err)
	require.Len(t, got, len(types))
	for i, event := range got {
		assert.Equal(t, types[i], event.Type)
		assert.Equal(t, at.Truncate(time.Microsecond), event.Occurred)
	}
}
