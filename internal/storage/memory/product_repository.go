package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

type productRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[domain.ProductID]domain.ProductState
	byExternal map[string]domain.ProductID
}

// NewProductRepository создаёт in-memory каталог продуктов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items:      make(map[domain.ProductID]domain.ProductState),
		byExternal: make(map[string]domain.ProductID),
	}
}

// Create добавляет продукт; внешний идентификатор должен быть уникален.
func (r *productRepositoryInMemory) Create(product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byExternal[product.ExternalID()]; taken {
		return domain.ErrDuplicatedExternalID
	}
	r.items[product.ID()] = product.State()
	r.byExternal[product.ExternalID()] = product.ID()
	return nil
}

func (r *productRepositoryInMemory) Get(id domain.ProductID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return domain.RestoreProduct(state), nil
}

func (r *productRepositoryInMemory) GetByExternalID(externalID string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return domain.RestoreProduct(r.items[id]), nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
