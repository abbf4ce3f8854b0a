package domain

import "time"

// OrderLine — строка заказа. Изменяется только через методы Order.
type OrderLine struct {
	id        OrderLineID
	orderID   OrderID
	product   ProductSnapshot
	quantity  Quantity
	subTotal  Money
	createdAt time.Time
}

// NewOrderLine создаёт строку для заказа orderID. Подытог = цена снимка × количество.
func NewOrderLine(orderID OrderID, product ProductSnapshot, quantity Quantity, createdAt time.Time) OrderLine {
	return OrderLine{
		id:        NewOrderLineID(),
		orderID:   orderID,
		product:   product,
		quantity:  quantity,
		subTotal:  product.UnitPrice.Multiply(quantity),
		createdAt: createdAt.UTC(),
	}
}

func (l OrderLine) ID() OrderLineID          { return l.id }
func (l OrderLine) OrderID() OrderID         { return l.orderID }
func (l OrderLine) Product() ProductSnapshot { return l.product }
func (l OrderLine) ProductID() ProductID     { return l.product.ProductID }
func (l OrderLine) Quantity() Quantity       { return l.quantity }
func (l OrderLine) SubTotal() Money          { return l.subTotal }
func (l OrderLine) UnitPrice() Money         { return l.product.UnitPrice }
func (l OrderLine) CreatedAt() time.Time     { return l.createdAt }

// withQuantity возвращает копию строки с новым количеством и пересчитанным подытогом.
func (l OrderLine) withQuantity(q Quantity) OrderLine {
	l.quantity = q
	l.subTotal = l.product.UnitPrice.Multiply(q)
	return l
}

// OrderLineState — плоское представление строки для хранилищ.
type OrderLineState struct {
	ID        OrderLineID
	OrderID   OrderID
	Product   ProductSnapshot
	Quantity  Quantity
	SubTotal  Money
	CreatedAt time.Time
}

func (l OrderLine) State() OrderLineState {
	return OrderLineState{
		ID:        l.id,
		OrderID:   l.orderID,
		Product:   l.product,
		Quantity:  l.quantity,
		SubTotal:  l.subTotal,
		CreatedAt: l.createdAt,
	}
}

// RestoreOrderLine восстанавливает строку с сохранённым подытогом.
func RestoreOrderLine(s OrderLineState) OrderLine {
	return OrderLine{
		id:        s.ID,
		orderID:   s.OrderID,
		product:   s.Product,
		quantity:  s.Quantity,
		subTotal:  s.SubTotal,
		createdAt: s.CreatedAt,
	}
}
