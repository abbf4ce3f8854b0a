package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

type distributorRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[domain.DistributorID]domain.DistributorState
	byPhone map[string]domain.DistributorID
}

// NewDistributorRepository создаёт in-memory реализацию DistributorRepository.
func NewDistributorRepository() domain.DistributorRepository {
	return &distributorRepositoryInMemory{
		items:   make(map[domain.DistributorID]domain.DistributorState),
		byPhone: make(map[string]domain.DistributorID),
	}
}

// Create сохраняет дистрибьютора; номер телефона должен быть свободен.
func (r *distributorRepositoryInMemory) Create(distributor *domain.Distributor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byPhone[distributor.PhoneNumber()]; taken {
		return domain.ErrDistributorExists
	}
	if _, exists := r.items[distributor.ID()]; exists {
		return domain.ErrDistributorExists
	}
	r.items[distributor.ID()] = distributor.State()
	r.byPhone[distributor.PhoneNumber()] = distributor.ID()
	return nil
}

func (r *distributorRepositoryInMemory) Get(id domain.DistributorID) (*domain.Distributor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[id]
	if !ok {
		return nil, domain.ErrDistributorNotFound
	}
	return domain.RestoreDistributor(state), nil
}

func (r *distributorRepositoryInMemory) GetByPhoneNumber(phoneNumber string) (*domain.Distributor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phoneNumber]
	if !ok {
		return nil, domain.ErrDistributorNotFound
	}
	return domain.RestoreDistributor(r.items[id]), nil
}

// Save перезаписывает дистрибьютора с проверкой версии.
func (r *distributorRepositoryInMemory) Save(distributor *domain.Distributor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[distributor.ID()]
	if !ok {
		return domain.ErrDistributorNotFound
	}
	if current.Version != distributor.Version() {
		return domain.ErrVersionConflict
	}

	state := distributor.State()
	state.Version++
	r.items[distributor.ID()] = state
	distributor.IncrementVersion()
	return nil
}

var _ domain.DistributorRepository = (*distributorRepositoryInMemory)(nil)
