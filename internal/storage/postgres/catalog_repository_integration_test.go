package postgres

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

var (
	integrationNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	moneyComparer = cmp.Comparer(func(a, b domain.Money) bool { return a.Equal(b) })
)

func TestProductRepository_PostgresCreateAndGet(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	product, err := domain.NewProduct("LECHE-1L", "Leche entera 1L", uyu(t, "45.50"), domain.CategoryLacteos, "sachet", integrationNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(product))

	byID, err := repo.Get(product.ID())
	require.NoError(t, err)
	if diff := cmp.Diff(product.State(), byID.State(), moneyComparer); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}

	byExternal, err := repo.GetByExternalID("LECHE-1L")
	require.NoError(t, err)
	assert.Equal(t, product.ID(), byExternal.ID())

	duplicate, err := domain.NewProduct("LECHE-1L", "Otra leche", uyu(t, "40"), domain.CategoryLacteos, "", integrationNow)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Create(duplicate), domain.ErrDuplicatedExternalID)

	_, err = repo.GetByExternalID("missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = repo.Get(domain.NewProductID())
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDistributorRepository_PostgresRoundTripAndVersioning(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewDistributorRepository(store)

	distributor, err := domain.NewDistributor("+59899111222", "Distribuidora Norte", montevideo(),
		[]domain.Category{domain.CategoryCongelados, domain.CategoryLacteos}, integrationNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(distributor))

	loaded, err := repo.GetByPhoneNumber("+59899111222")
	require.NoError(t, err)
	if diff := cmp.Diff(distributor.State(), loaded.State()); diff != "" {
		t.Fatalf("distributor mismatch (-want +got):\n%s", diff)
	}

	stale, err := repo.Get(distributor.ID())
	require.NoError(t, err)

	require.True(t, loaded.AddCategory(domain.CategorySubproductos))
	require.NoError(t, repo.Save(loaded))
	assert.Equal(t, int64(1), loaded.Version())

	require.True(t, stale.RemoveCategory(domain.CategoryLacteos))
	require.ErrorIs(t, repo.Save(stale), domain.ErrVersionConflict)

	reloaded, err := repo.Get(distributor.ID())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryCongelados, domain.CategoryLacteos, domain.CategorySubproductos}, reloaded.SupportedCategories())
	assert.Equal(t, montevideo(), reloaded.Address())

	same, err := domain.NewDistributor("+59899111222", "Duplicate", montevideo(), nil, integrationNow)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Create(same), domain.ErrDistributorExists)

	ghost := domain.RestoreDistributor(domain.DistributorState{ID: domain.NewDistributorID(), PhoneNumber: "+1", Name: "ghost"})
	require.ErrorIs(t, repo.Save(ghost), domain.ErrDistributorNotFound)
}

func TestPointOfSaleRepository_PostgresAssignments(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	distributors := NewDistributorRepository(store)
	repo := NewPointOfSaleRepository(store)

	distributor, err := domain.NewDistributor("+59899000001", "Distribuidora Sur", montevideo(),
		[]domain.Category{domain.CategoryLacteos, domain.CategoryCongelados}, integrationNow)
	require.NoError(t, err)
	require.NoError(t, distributors.Create(distributor))

	pos, err := domain.NewPointOfSale("Almacén Don Pepe", "+59824000001", montevideo(), integrationNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(pos))

	require.True(t, pos.AssignDistributor(distributor.ID(), domain.CategoryLacteos, integrationNow))
	require.True(t, pos.Deactivate())
	require.NoError(t, repo.Save(pos))

	loaded, err := repo.GetByPhoneNumber("+59824000001")
	require.NoError(t, err)
	if diff := cmp.Diff(pos.State(), loaded.State()); diff != "" {
		t.Fatalf("point of sale mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, loaded.IsActive())
	assert.True(t, loaded.IsAssigned(distributor.ID(), domain.CategoryLacteos))

	// Агрегат не даёт создать дубль назначения, поэтому собираем состояние вручную:
	// проверяется именно уникальный индекс.
	state := loaded.State()
	dup := state.Assignments[0]
	dup.ID = domain.NewAssignmentID()
	state.Assignments = append(state.Assignments, dup)
	require.ErrorIs(t, repo.Save(domain.RestorePointOfSale(state)), domain.ErrAlreadyAssigned)

	afterFailure, err := repo.Get(pos.ID())
	require.NoError(t, err)
	assert.Len(t, afterFailure.Assignments(), 1)
	assert.Equal(t, loaded.Version(), afterFailure.Version())

	other, err := domain.NewPointOfSale("Otro", "+59824000001", montevideo(), integrationNow)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Create(other), domain.ErrPointOfSaleExists)
}

func TestPointOfSaleRepository_PostgresConcurrentAssignment(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	distributors := NewDistributorRepository(store)
	repo := NewPointOfSaleRepository(store)

	distributor, err := domain.NewDistributor("+59899000002", "Distribuidora Este", montevideo(),
		[]domain.Category{domain.CategoryLacteos}, integrationNow)
	require.NoError(t, err)
	require.NoError(t, distributors.Create(distributor))

	pos, err := domain.NewPointOfSale("Kiosco", "+59824000002", montevideo(), integrationNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(pos))

	const writers = 4
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range writers {
		copyOf, err := repo.Get(pos.ID())
		require.NoError(t, err)
		require.True(t, copyOf.AssignDistributor(distributor.ID(), domain.CategoryLacteos, integrationNow))

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Save(copyOf)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	}
	assert.Equal(t, 1, succeeded)

	final, err := repo.Get(pos.ID())
	require.NoError(t, err)
	assert.Len(t, final.Assignments(), 1)
}

func TestCatalogRepositories_PostgresAddressWithSeparatorsSurvivesSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	distributors := NewDistributorRepository(store)
	points := NewPointOfSaleRepository(store)

	address := domain.NewAddress("Montevideo", "Av. Italia 1234, apto 5", "{11300}")

	distributor, err := domain.NewDistributor("+59899000003", "Distribuidora Oeste", address,
		[]domain.Category{domain.CategoryLacteos}, integrationNow)
	require.NoError(t, err)
	require.NoError(t, distributors.Create(distributor))

	pos, err := domain.NewPointOfSale("Almacén La Esquina", "+59824000003", address, integrationNow)
	require.NoError(t, err)
	require.NoError(t, points.Create(pos))

	require.True(t, pos.AssignDistributor(distributor.ID(), domain.CategoryLacteos, integrationNow))
	require.NoError(t, points.Save(pos))
	require.True(t, distributor.AddCategory(domain.CategoryCongelados))
	require.NoError(t, distributors.Save(distributor))

	// Второй цикл чтения и сохранения: адрес не должен деградировать.
	loadedPOS, err := points.Get(pos.ID())
	require.NoError(t, err)
	assert.Equal(t, address, loadedPOS.Address())
	require.True(t, loadedPOS.Deactivate())
	require.NoError(t, points.Save(loadedPOS))

	reloadedPOS, err := points.GetByPhoneNumber("+59824000003")
	require.NoError(t, err)
	assert.Equal(t, address, reloadedPOS.Address())

	loadedDistributor, err := distributors.Get(distributor.ID())
	require.NoError(t, err)
	assert.Equal(t, address, loadedDistributor.Address())
	require.True(t, loadedDistributor.RemoveCategory(domain.CategoryLacteos))
	require.NoError(t, distributors.Save(loadedDistributor))

	reloadedDistributor, err := distributors.GetByPhoneNumber("+59899000003")
	require.NoError(t, err)
	assert.Equal(t, address, reloadedDistributor.Address())
}

func TestCatalogRepositories_PostgresReadsLegacyAddressColumn(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	distributors := NewDistributorRepository(store)
	points := NewPointOfSaleRepository(store)

	distributor, err := domain.NewDistributor("+59899000004", "Distribuidora Vieja", domain.Address{}, nil, integrationNow)
	require.NoError(t, err)
	require.NoError(t, distributors.Create(distributor))
	pos, err := domain.NewPointOfSale("Almacén Viejo", "+59824000004", domain.Address{}, integrationNow)
	require.NoError(t, err)
	require.NoError(t, points.Create(pos))

	// Строки, записанные до разделения адреса на колонки.
	legacy := montevideo().String()
	_, err = store.DB().Exec(`UPDATE distributors SET address = $1 WHERE id = $2`, legacy, distributor.ID().String())
	require.NoError(t, err)
	_, err = store.DB().Exec(`UPDATE points_of_sale SET address = $1 WHERE id = $2`, legacy, pos.ID().String())
	require.NoError(t, err)

	loadedDistributor, err := distributors.Get(distributor.ID())
	require.NoError(t, err)
	assert.Equal(t, montevideo(), loadedDistributor.Address())

	loadedPOS, err := points.Get(pos.ID())
	require.NoError(t, err)
	assert.Equal(t, montevideo(), loadedPOS.Address())

	// После Save адрес переезжает в колонки, legacy-значение очищается.
	require.True(t, loadedPOS.Deactivate())
	require.NoError(t, points.Save(loadedPOS))

	var (
		city         string
		legacyColumn sql.NullString
	)
	require.NoError(t, store.DB().QueryRow(
		`SELECT address_city, address FROM points_of_sale WHERE id = $1`, pos.ID().String(),
	).Scan(&city, &legacyColumn))
	assert.Equal(t, "Montevideo", city)
	assert.False(t, legacyColumn.Valid)
}
