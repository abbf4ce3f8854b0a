package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	got, err := ParseCategory(" lacteos ")
	require.NoError(t, err)
	assert.Equal(t, CategoryLacteos, got)

	got, err = ParseCategory("BEBIDAS")
	require.NoError(t, err, "deprecated categories stay readable")
	assert.True(t, got.Deprecated())

	_, err = ParseCategory("QUESOS")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseActiveCategory(t *testing.T) {
	_, err := ParseActiveCategory("bebidas")
	require.ErrorIs(t, err, ErrCategoryDeprecated)

	got, err := ParseActiveCategory("congelados")
	require.NoError(t, err)
	assert.Equal(t, CategoryCongelados, got)
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"created", "Confirmed", "DELIVERED", "rejected", "canceled"} {
		s, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.True(t, s.Valid())
	}

	_, err := ParseStatus("shipped")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseID(t *testing.T) {
	id := NewOrderID()

	parsed, err := ParseID[OrderID](id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID[OrderID]("not-a-uuid")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseID[DistributorID]("00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrValidation)
}

func TestTimelineReason(t *testing.T) {
	assert.Equal(t, "status changed from created to confirmed",
		TimelineReason(OrderStatusChanged{OrderID: "o", Previous: "created", Status: "confirmed"}))
	assert.Equal(t, "line l1 added: product p1 x3",
		TimelineReason(OrderLineAdded{OrderID: "o", LineID: "l1", ProductID: "p1", Quantity: 3}))
	assert.Equal(t, EventDistributorAssigned, TimelineReason(DistributorAssigned{}))
}
