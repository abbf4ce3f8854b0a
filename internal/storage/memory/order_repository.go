package memory

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
// Хранит снимки состояния, поэтому объекты, выданные наружу, не разделяют память с хранилищем.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[domain.OrderID]domain.OrderState
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[domain.OrderID]domain.OrderState),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID()]; exists {
		return fmt.Errorf("%w: order %s already exists", domain.ErrVersionConflict, order.ID())
	}
	r.items[order.ID()] = order.State()
	return nil
}

// CreateAll проверяет всю пачку под одной блокировкой и только затем пишет её.
func (r *orderRepositoryInMemory) CreateAll(orders []*domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[domain.OrderID]struct{}, len(orders))
	for _, order := range orders {
		if _, exists := r.items[order.ID()]; exists {
			return fmt.Errorf("%w: order %s already exists", domain.ErrVersionConflict, order.ID())
		}
		if _, dup := seen[order.ID()]; dup {
			return fmt.Errorf("%w: order %s repeats in batch", domain.ErrVersionConflict, order.ID())
		}
		seen[order.ID()] = struct{}{}
	}
	for _, order := range orders {
		r.items[order.ID()] = order.State()
	}
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id domain.OrderID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.RestoreOrder(state), nil
}

func (r *orderRepositoryInMemory) ListByPointOfSale(id domain.PointOfSaleID, limit int) ([]*domain.Order, error) {
	return r.list(func(s domain.OrderState) bool { return s.PointOfSaleID == id }, limit), nil
}

func (r *orderRepositoryInMemory) ListByDistributor(id domain.DistributorID, limit int) ([]*domain.Order, error) {
	return r.list(func(s domain.OrderState) bool { return s.DistributorID == id }, limit), nil
}

// list выбирает заказы по фильтру: новые первыми, limit > 0 ограничивает выборку.
func (r *orderRepositoryInMemory) list(match func(domain.OrderState) bool, limit int) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]domain.OrderState, 0, len(r.items))
	for _, state := range r.items {
		if match(state) {
			states = append(states, state)
		}
	}

	slices.SortFunc(states, func(a, b domain.OrderState) int {
		if c := b.CreatedOn.Compare(a.CreatedOn); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})

	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	result := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		result = append(result, domain.RestoreOrder(state))
	}
	return result
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID()]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version() {
		return domain.ErrVersionConflict
	}

	state := order.State()
	state.Version++
	r.items[order.ID()] = state
	order.IncrementVersion()
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
