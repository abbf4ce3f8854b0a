package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// timelineRepositoryInMemory хранит историю заказов в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие; события с одинаковым временем сохраняют порядок добавления.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("%w: timeline event without order id", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	events := append(r.events[event.OrderID], event)
	slices.SortStableFunc(events, func(a, b domain.TimelineEvent) int {
		return a.Occurred.Compare(b.Occurred)
	})
	r.events[event.OrderID] = events
	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.events[orderID]), nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
