package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
	"github.com/vladislavdragonenkov/dairy-oms/internal/storage/memory"
)

func TestPointOfSaleRepository(t *testing.T) {
	repo := memory.NewPointOfSaleRepository()
	pos, err := domain.NewPointOfSale("Almacén Don José", "24001234", domain.Address{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(pos))

	dup, err := domain.NewPointOfSale("Otro", "24001234", domain.Address{}, time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, repo.Create(dup), domain.ErrPointOfSaleExists)

	loaded, err := repo.GetByPhoneNumber("24001234")
	require.NoError(t, err)
	dist := domain.NewDistributorID()
	require.True(t, loaded.AssignDistributor(dist, domain.CategoryLacteos, time.Now()))
	require.NoError(t, repo.Save(loaded))

	reloaded, err := repo.Get(pos.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.IsAssigned(dist, domain.CategoryLacteos))
	assert.Len(t, reloaded.Assignments(), 1)

	_, err = repo.Get(domain.NewPointOfSaleID())
	require.ErrorIs(t, err, domain.ErrPointOfSaleNotFound)
}

// Два запроса загрузили один снимок и оба прошли проверку в памяти:
// второй должен получить конфликт, а не дубликат назначения.
func TestPointOfSaleRepository_ConcurrentAssignIsRejected(t *testing.T) {
	repo := memory.NewPointOfSaleRepository()
	pos, err := domain.NewPointOfSale("Kiosco", "24009999", domain.Address{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(pos))

	first, err := repo.Get(pos.ID())
	require.NoError(t, err)
	second, err := repo.Get(pos.ID())
	require.NoError(t, err)
	dist := domain.NewDistributorID()

	require.True(t, first.AssignDistributor(dist, domain.CategoryLacteos, time.Now()))
	require.True(t, second.AssignDistributor(dist, domain.CategoryLacteos, time.Now()))

	require.NoError(t, repo.Save(first))
	require.ErrorIs(t, repo.Save(second), domain.ErrVersionConflict)

	stored, err := repo.Get(pos.ID())
	require.NoError(t, err)
	assert.Len(t, stored.Assignments(), 1)
}

func TestPointOfSaleRepository_RejectsDuplicateAssignmentInState(t *testing.T) {
	repo := memory.NewPointOfSaleRepository()
	dist := domain.NewDistributorID()
	id := domain.NewPointOfSaleID()
	state := domain.PointOfSaleState{
		ID:          id,
		Name:        "Kiosco",
		PhoneNumber: "24005555",
		IsActive:    true,
		Assignments: []domain.Assignment{
			{ID: domain.NewAssignmentID(), PointOfSaleID: id, DistributorID: dist, Category: domain.CategoryLacteos},
			{ID: domain.NewAssignmentID(), PointOfSaleID: id, DistributorID: dist, Category: domain.CategoryLacteos},
		},
	}

	err := repo.Create(domain.RestorePointOfSale(state))

	require.ErrorIs(t, err, domain.ErrAlreadyAssigned)
}
