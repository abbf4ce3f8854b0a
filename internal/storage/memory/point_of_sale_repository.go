package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// assignmentKey повторяет уникальный индекс PostgreSQL по назначениям.
type assignmentKey struct {
	pointOfSaleID domain.PointOfSaleID
	distributorID domain.DistributorID
	category      domain.Category
}

type pointOfSaleRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[domain.PointOfSaleID]domain.PointOfSaleState
	byPhone map[string]domain.PointOfSaleID
}

// NewPointOfSaleRepository создаёт in-memory реализацию PointOfSaleRepository.
func NewPointOfSaleRepository() domain.PointOfSaleRepository {
	return &pointOfSaleRepositoryInMemory{
		items:   make(map[domain.PointOfSaleID]domain.PointOfSaleState),
		byPhone: make(map[string]domain.PointOfSaleID),
	}
}

func (r *pointOfSaleRepositoryInMemory) Create(pointOfSale *domain.PointOfSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byPhone[pointOfSale.PhoneNumber()]; taken {
		return domain.ErrPointOfSaleExists
	}
	if _, exists := r.items[pointOfSale.ID()]; exists {
		return domain.ErrPointOfSaleExists
	}
	state := pointOfSale.State()
	if err := checkUniqueAssignments(state.Assignments); err != nil {
		return err
	}
	r.items[pointOfSale.ID()] = state
	r.byPhone[pointOfSale.PhoneNumber()] = pointOfSale.ID()
	return nil
}

func (r *pointOfSaleRepositoryInMemory) Get(id domain.PointOfSaleID) (*domain.PointOfSale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[id]
	if !ok {
		return nil, domain.ErrPointOfSaleNotFound
	}
	return domain.RestorePointOfSale(state), nil
}

func (r *pointOfSaleRepositoryInMemory) GetByPhoneNumber(phoneNumber string) (*domain.PointOfSale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phoneNumber]
	if !ok {
		return nil, domain.ErrPointOfSaleNotFound
	}
	return domain.RestorePointOfSale(r.items[id]), nil
}

// Save перезаписывает точку продаж с проверкой версии и уникальности назначений.
func (r *pointOfSaleRepositoryInMemory) Save(pointOfSale *domain.PointOfSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[pointOfSale.ID()]
	if !ok {
		return domain.ErrPointOfSaleNotFound
	}
	if current.Version != pointOfSale.Version() {
		return domain.ErrVersionConflict
	}

	state := pointOfSale.State()
	if err := checkUniqueAssignments(state.Assignments); err != nil {
		return err
	}
	state.Version++
	r.items[pointOfSale.ID()] = state
	pointOfSale.IncrementVersion()
	return nil
}

func checkUniqueAssignments(assignments []domain.Assignment) error {
	seen := make(map[assignmentKey]struct{}, len(assignments))
	for _, a := range assignments {
		key := assignmentKey{pointOfSaleID: a.PointOfSaleID, distributorID: a.DistributorID, category: a.Category}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: distributor %s, category %s", domain.ErrAlreadyAssigned, a.DistributorID, a.Category)
		}
		seen[key] = struct{}{}
	}
	return nil
}

var _ domain.PointOfSaleRepository = (*pointOfSaleRepositoryInMemory)(nil)
