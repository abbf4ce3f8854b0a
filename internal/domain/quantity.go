package domain

import "fmt"

// Quantity — положительное количество единиц товара.
type Quantity struct {
	value int
}

// NewQuantity создаёт количество; значения <= 0 отклоняются.
func NewQuantity(value int) (Quantity, error) {
	if value <= 0 {
		return Quantity{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, value)
	}
	return Quantity{value: value}, nil
}

// MustQuantity — как NewQuantity, но паникует; для констант и тестов.
func MustQuantity(value int) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// Int возвращает количество как обычное целое.
func (q Quantity) Int() int { return q.value }

func (q Quantity) String() string { return fmt.Sprintf("%d", q.value) }
