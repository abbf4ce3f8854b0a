package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Идентификаторы агрегатов и сущностей. Отдельные типы не дают перепутать,
// например, id дистрибьютора с id точки продаж.
type (
	OrderID       uuid.UUID
	OrderLineID   uuid.UUID
	ProductID     uuid.UUID
	DistributorID uuid.UUID
	PointOfSaleID uuid.UUID
	AssignmentID  uuid.UUID
)

func NewOrderID() OrderID             { return OrderID(uuid.New()) }
func NewOrderLineID() OrderLineID     { return OrderLineID(uuid.New()) }
func NewProductID() ProductID         { return ProductID(uuid.New()) }
func NewDistributorID() DistributorID { return DistributorID(uuid.New()) }
func NewPointOfSaleID() PointOfSaleID { return PointOfSaleID(uuid.New()) }
func NewAssignmentID() AssignmentID   { return AssignmentID(uuid.New()) }

func (id OrderID) String() string       { return uuid.UUID(id).String() }
func (id OrderLineID) String() string   { return uuid.UUID(id).String() }
func (id ProductID) String() string     { return uuid.UUID(id).String() }
func (id DistributorID) String() string { return uuid.UUID(id).String() }
func (id PointOfSaleID) String() string { return uuid.UUID(id).String() }
func (id AssignmentID) String() string  { return uuid.UUID(id).String() }

// ParseID разбирает строковый UUID в типизированный идентификатор.
func ParseID[T ~[16]byte](raw string) (T, error) {
	var zero T
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: invalid identifier %q", ErrValidation, raw)
	}
	if parsed == uuid.Nil {
		return zero, fmt.Errorf("%w: identifier is empty", ErrValidation)
	}
	return T(parsed), nil
}
