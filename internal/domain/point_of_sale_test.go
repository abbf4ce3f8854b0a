package domain

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPointOfSale(t *testing.T) *PointOfSale {
	t.Helper()
	pos, err := NewPointOfSale(gofakeit.Company(), gofakeit.Phone(), NewAddress("Montevideo", "18 de Julio 1000", "11100"), testNow)
	require.NoError(t, err)
	return pos
}

func TestNewPointOfSale(t *testing.T) {
	pos := newTestPointOfSale(t)

	assert.True(t, pos.IsActive())
	assert.Empty(t, pos.Assignments())

	_, err := NewPointOfSale("", "099", Address{}, testNow)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewPointOfSale("Almacén", " ", Address{}, testNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPointOfSaleAssignDistributor(t *testing.T) {
	pos := newTestPointOfSale(t)
	d1 := NewDistributorID()

	assert.True(t, pos.AssignDistributor(d1, CategoryLacteos, testNow))
	assert.False(t, pos.AssignDistributor(d1, CategoryLacteos, testNow))

	assignments := pos.Assignments()
	require.Len(t, assignments, 1)
	assert.Equal(t, pos.ID(), assignments[0].PointOfSaleID)
	assert.Equal(t, d1, assignments[0].DistributorID)
	assert.Equal(t, CategoryLacteos, assignments[0].Category)
	assert.Equal(t, testNow, assignments[0].AssignedAt)

	events := pos.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventDistributorAssigned, events[0].EventType())
	assert.Equal(t, assignments[0].ID.String(), events[0].(DistributorAssigned).AssignmentID)
}

func TestPointOfSaleAssignSameDistributorSeveralCategories(t *testing.T) {
	pos := newTestPointOfSale(t)
	d1 := NewDistributorID()
	d2 := NewDistributorID()

	assert.True(t, pos.AssignDistributor(d1, CategoryLacteos, testNow))
	assert.True(t, pos.AssignDistributor(d1, CategoryCongelados, testNow))
	assert.True(t, pos.AssignDistributor(d2, CategoryLacteos, testNow))

	assert.Len(t, pos.Assignments(), 3)
	assert.ElementsMatch(t, []Category{CategoryLacteos, CategoryCongelados}, pos.DistributorCategories(d1))
	assert.True(t, pos.IsAssigned(d2, CategoryLacteos))
	assert.False(t, pos.IsAssigned(d2, CategoryCongelados))
}

func TestPointOfSaleUnassignDistributor(t *testing.T) {
	pos := newTestPointOfSale(t)
	d1 := NewDistributorID()
	require.True(t, pos.AssignDistributor(d1, CategoryLacteos, testNow))
	require.True(t, pos.AssignDistributor(d1, CategoryCongelados, testNow))
	pos.DrainEvents()

	assert.True(t, pos.UnassignDistributor(d1, CategoryLacteos))
	assert.False(t, pos.UnassignDistributor(d1, CategoryLacteos))
	assert.False(t, pos.UnassignDistributor(NewDistributorID(), CategoryCongelados))

	assert.Equal(t, []Category{CategoryCongelados}, pos.DistributorCategories(d1))
	events := pos.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, DistributorUnassigned{
		PointOfSaleID: pos.ID().String(),
		DistributorID: d1.String(),
		Category:      "LACTEOS",
	}, events[0])
}

func TestPointOfSaleActivation(t *testing.T) {
	pos := newTestPointOfSale(t)

	assert.False(t, pos.Activate())
	assert.True(t, pos.Deactivate())
	assert.False(t, pos.IsActive())
	assert.False(t, pos.Deactivate())
	assert.True(t, pos.Activate())

	events := pos.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventPointOfSaleDeactivated, events[0].EventType())
	assert.Equal(t, EventPointOfSaleActivated, events[1].EventType())
}

func TestPointOfSaleStateRoundTrip(t *testing.T) {
	pos := newTestPointOfSale(t)
	require.True(t, pos.AssignDistributor(NewDistributorID(), CategorySubproductos, testNow))

	restored := RestorePointOfSale(pos.State())

	assert.Equal(t, pos.State(), restored.State())
	assert.Empty(t, restored.PendingEvents())
}
