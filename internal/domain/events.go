package domain

import "slices"

// Типы агрегатов, которые публикуют события.
const (
	AggregateOrder       = "order"
	AggregateDistributor = "distributor"
	AggregatePointOfSale = "point_of_sale"
)

// Типы доменных событий. Используются как ключ маршрутизации во внешнем издателе.
const (
	EventOrderCreated               = "order.created"
	EventOrderLineAdded             = "order.line_added"
	EventOrderLineRemoved           = "order.line_removed"
	EventOrderLineQuantityUpdated   = "order.line_quantity_updated"
	EventOrderStatusChanged         = "order.status_changed"
	EventDistributorCategoryAdded   = "distributor.category_added"
	EventDistributorCategoryRemoved = "distributor.category_removed"
	EventDistributorAssigned        = "point_of_sale.distributor_assigned"
	EventDistributorUnassigned      = "point_of_sale.distributor_unassigned"
	EventPointOfSaleActivated       = "point_of_sale.activated"
	EventPointOfSaleDeactivated     = "point_of_sale.deactivated"
)

// Event — неизменяемая запись об изменении состояния агрегата.
// Время события проставляет граница при выгрузке буфера.
type Event interface {
	EventType() string
	AggregateType() string
	AggregateID() string
}

// EventBuffer копит события агрегата в порядке возникновения в рамках одной единицы работы.
type EventBuffer struct {
	events []Event
}

func (b *EventBuffer) raise(e Event) {
	b.events = append(b.events, e)
}

// PendingEvents возвращает копию невыгруженных событий.
func (b *EventBuffer) PendingEvents() []Event {
	return slices.Clone(b.events)
}

// DrainEvents возвращает события в порядке добавления и очищает буфер.
func (b *EventBuffer) DrainEvents() []Event {
	drained := b.events
	b.events = nil
	return drained
}

// EventSource реализуют все агрегаты с буфером событий.
type EventSource interface {
	PendingEvents() []Event
	DrainEvents() []Event
}

type OrderCreated struct {
	OrderID       string `json:"order_id"`
	PointOfSaleID string `json:"point_of_sale_id"`
	DistributorID string `json:"distributor_id"`
	Currency      string `json:"currency"`
}

func (e OrderCreated) EventType() string     { return EventOrderCreated }
func (e OrderCreated) AggregateType() string { return AggregateOrder }
func (e OrderCreated) AggregateID() string   { return e.OrderID }

type OrderLineAdded struct {
	OrderID   string `json:"order_id"`
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e OrderLineAdded) EventType() string     { return EventOrderLineAdded }
func (e OrderLineAdded) AggregateType() string { return AggregateOrder }
func (e OrderLineAdded) AggregateID() string   { return e.OrderID }

type OrderLineRemoved struct {
	OrderID   string `json:"order_id"`
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
}

func (e OrderLineRemoved) EventType() string     { return EventOrderLineRemoved }
func (e OrderLineRemoved) AggregateType() string { return AggregateOrder }
func (e OrderLineRemoved) AggregateID() string   { return e.OrderID }

type OrderLineQuantityUpdated struct {
	OrderID  string `json:"order_id"`
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

func (e OrderLineQuantityUpdated) EventType() string     { return EventOrderLineQuantityUpdated }
func (e OrderLineQuantityUpdated) AggregateType() string { return AggregateOrder }
func (e OrderLineQuantityUpdated) AggregateID() string   { return e.OrderID }

type OrderStatusChanged struct {
	OrderID  string `json:"order_id"`
	Previous string `json:"previous_status"`
	Status   string `json:"status"`
}

func (e OrderStatusChanged) EventType() string     { return EventOrderStatusChanged }
func (e OrderStatusChanged) AggregateType() string { return AggregateOrder }
func (e OrderStatusChanged) AggregateID() string   { return e.OrderID }

type DistributorCategoryAdded struct {
	DistributorID string `json:"distributor_id"`
	Category      string `json:"category"`
}

func (e DistributorCategoryAdded) EventType() string     { return EventDistributorCategoryAdded }
func (e DistributorCategoryAdded) AggregateType() string { return AggregateDistributor }
func (e DistributorCategoryAdded) AggregateID() string   { return e.DistributorID }

type DistributorCategoryRemoved struct {
	DistributorID string `json:"distributor_id"`
	Category      string `json:"category"`
}

func (e DistributorCategoryRemoved) EventType() string     { return EventDistributorCategoryRemoved }
func (e DistributorCategoryRemoved) AggregateType() string { return AggregateDistributor }
func (e DistributorCategoryRemoved) AggregateID() string   { return e.DistributorID }

type DistributorAssigned struct {
	PointOfSaleID string `json:"point_of_sale_id"`
	DistributorID string `json:"distributor_id"`
	AssignmentID  string `json:"assignment_id"`
	Category      string `json:"category"`
}

func (e DistributorAssigned) EventType() string     { return EventDistributorAssigned }
func (e DistributorAssigned) AggregateType() string { return AggregatePointOfSale }
func (e DistributorAssigned) AggregateID() string   { return e.PointOfSaleID }

type DistributorUnassigned struct {
	PointOfSaleID string `json:"point_of_sale_id"`
	DistributorID string `json:"distributor_id"`
	Category      string `json:"category"`
}

func (e DistributorUnassigned) EventType() string     { return EventDistributorUnassigned }
func (e DistributorUnassigned) AggregateType() string { return AggregatePointOfSale }
func (e DistributorUnassigned) AggregateID() string   { return e.PointOfSaleID }

type PointOfSaleActivated struct {
	PointOfSaleID string `json:"point_of_sale_id"`
}

func (e PointOfSaleActivated) EventType() string     { return EventPointOfSaleActivated }
func (e PointOfSaleActivated) AggregateType() string { return AggregatePointOfSale }
func (e PointOfSaleActivated) AggregateID() string   { return e.PointOfSaleID }

type PointOfSaleDeactivated struct {
	PointOfSaleID string `json:"point_of_sale_id"`
}

func (e PointOfSaleDeactivated) EventType() string     { return EventPointOfSaleDeactivated }
func (e PointOfSaleDeactivated) AggregateType() string { return AggregatePointOfSale }
func (e PointOfSaleDeactivated) AggregateID() string   { return e.PointOfSaleID }
