package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// LineItem — товар и количество для новой строки заказа.
type LineItem struct {
	Product  ProductSnapshot
	Quantity Quantity
}

// Order — агрегат заказа. Держит строки, итоговую цену и статус.
//
// Цена всегда равна сумме подытогов строк. Каждая операция со строками сначала
// вычисляет новую цену и только потом меняет состояние, поэтому при ошибке
// агрегат остаётся прежним.
type Order struct {
	EventBuffer

	id              OrderID
	pointOfSaleID   PointOfSaleID
	distributorID   DistributorID
	deliveryAddress Address
	status          Status
	createdOn       time.Time
	confirmedOn     *time.Time
	rejectedOn      *time.Time
	deliveredOn     *time.Time
	canceledOn      *time.Time
	price           Money
	lines           []OrderLine
	version         int64
}

// NewOrder создаёт заказ в статусе created как минимум с одной строкой.
// Порождает OrderCreated и по одному OrderLineAdded на строку.
func NewOrder(
	pointOfSaleID PointOfSaleID,
	distributorID DistributorID,
	deliveryAddress Address,
	currency Currency,
	createdOn time.Time,
	items []LineItem,
) (*Order, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency.String())
	}
	if len(items) == 0 {
		return nil, ErrOrderHasNoLines
	}

	createdOn = createdOn.UTC()
	order := &Order{
		id:              NewOrderID(),
		pointOfSaleID:   pointOfSaleID,
		distributorID:   distributorID,
		deliveryAddress: deliveryAddress,
		status:          StatusCreated,
		createdOn:       createdOn,
		price:           ZeroMoney(currency),
		lines:           make([]OrderLine, 0, len(items)),
	}
	order.raise(OrderCreated{
		OrderID:       order.id.String(),
		PointOfSaleID: pointOfSaleID.String(),
		DistributorID: distributorID.String(),
		Currency:      currency.String(),
	})

	for _, item := range items {
		if err := order.AddLine(NewOrderLine(order.id, item.Product, item.Quantity, createdOn)); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (o *Order) ID() OrderID                  { return o.id }
func (o *Order) PointOfSaleID() PointOfSaleID { return o.pointOfSaleID }
func (o *Order) DistributorID() DistributorID { return o.distributorID }
func (o *Order) DeliveryAddress() Address     { return o.deliveryAddress }
func (o *Order) Status() Status               { return o.status }
func (o *Order) CreatedOn() time.Time         { return o.createdOn }
func (o *Order) ConfirmedOn() *time.Time      { return copyTime(o.confirmedOn) }
func (o *Order) RejectedOn() *time.Time       { return copyTime(o.rejectedOn) }
func (o *Order) DeliveredOn() *time.Time      { return copyTime(o.deliveredOn) }
func (o *Order) CanceledOn() *time.Time       { return copyTime(o.canceledOn) }
func (o *Order) Price() Money                 { return o.price }
func (o *Order) Currency() Currency           { return o.price.Currency() }
func (o *Order) Version() int64               { return o.version }
func (o *Order) Lines() []OrderLine           { return slices.Clone(o.lines) }
func (o *Order) LineCount() int               { return len(o.lines) }

// IncrementVersion вызывается хранилищем после успешного сохранения.
func (o *Order) IncrementVersion() { o.version++ }

// Line возвращает строку по идентификатору.
func (o *Order) Line(id OrderLineID) (OrderLine, bool) {
	return lo.Find(o.lines, func(l OrderLine) bool { return l.id == id })
}

// HasProduct сообщает, есть ли в заказе строка с продуктом.
func (o *Order) HasProduct(id ProductID) bool {
	return lo.ContainsBy(o.lines, func(l OrderLine) bool { return l.product.ProductID == id })
}

// AddProduct создаёт строку из снимка продукта и добавляет её в заказ.
func (o *Order) AddProduct(product ProductSnapshot, quantity Quantity, at time.Time) (OrderLine, error) {
	line := NewOrderLine(o.id, product, quantity, at)
	if err := o.AddLine(line); err != nil {
		return OrderLine{}, err
	}
	return line, nil
}

// AddLine добавляет строку и увеличивает цену на её подытог.
func (o *Order) AddLine(line OrderLine) error {
	if line.orderID != o.id {
		return fmt.Errorf("%w: line %s", ErrLineOwnerMismatch, line.id)
	}
	if o.HasProduct(line.product.ProductID) {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, line.product.ProductID)
	}
	price, err := o.price.Add(line.subTotal)
	if err != nil {
		return err
	}

	o.lines = append(o.lines, line)
	o.price = price
	o.raise(OrderLineAdded{
		OrderID:   o.id.String(),
		LineID:    line.id.String(),
		ProductID: line.product.ProductID.String(),
		Quantity:  line.quantity.Int(),
	})
	return nil
}

// RemoveLine удаляет строку. Последнюю строку удалить нельзя.
func (o *Order) RemoveLine(lineID OrderLineID) error {
	idx := slices.IndexFunc(o.lines, func(l OrderLine) bool { return l.id == lineID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	if len(o.lines) == 1 {
		return ErrCannotRemoveLastLine
	}
	line := o.lines[idx]
	price, err := o.price.Subtract(line.subTotal)
	if err != nil {
		return err
	}

	o.lines = slices.Delete(o.lines, idx, idx+1)
	o.price = price
	o.raise(OrderLineRemoved{
		OrderID:   o.id.String(),
		LineID:    line.id.String(),
		ProductID: line.product.ProductID.String(),
	})
	return nil
}

// UpdateLineQuantity меняет количество и сдвигает цену на разницу подытогов.
func (o *Order) UpdateLineQuantity(lineID OrderLineID, quantity Quantity) error {
	idx := slices.IndexFunc(o.lines, func(l OrderLine) bool { return l.id == lineID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	current := o.lines[idx]
	updated := current.withQuantity(quantity)

	// Вычитание старого подытога не уходит в минус: цена >= любого подытога.
	price, err := o.price.Subtract(current.subTotal)
	if err != nil {
		return err
	}
	if price, err = price.Add(updated.subTotal); err != nil {
		return err
	}

	o.lines[idx] = updated
	o.price = price
	o.raise(OrderLineQuantityUpdated{
		OrderID:  o.id.String(),
		LineID:   lineID.String(),
		Quantity: quantity.Int(),
	})
	return nil
}

// UpdateStatus выставляет статус и проставляет соответствующую отметку времени.
// Повторная установка того же статуса перезаписывает отметку.
func (o *Order) UpdateStatus(status Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status.String())
	}
	at = at.UTC()
	previous := o.status
	o.status = status
	switch status {
	case StatusConfirmed:
		o.confirmedOn = &at
	case StatusRejected:
		o.rejectedOn = &at
	case StatusDelivered:
		o.deliveredOn = &at
	case StatusCanceled:
		o.canceledOn = &at
	}
	o.raise(OrderStatusChanged{
		OrderID:  o.id.String(),
		Previous: previous.String(),
		Status:   status.String(),
	})
	return nil
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
// Используется перед сохранением и при чтении из хранилища.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.lines) == 0 {
		errs = append(errs, ErrOrderHasNoLines)
	}

	seen := make(map[ProductID]struct{}, len(o.lines))
	sum := ZeroMoney(o.price.Currency())
	for _, line := range o.lines {
		if line.orderID != o.id {
			errs = append(errs, fmt.Errorf("%w: line %s", ErrLineOwnerMismatch, line.id))
		}
		if _, dup := seen[line.product.ProductID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateProduct, line.product.ProductID))
		}
		seen[line.product.ProductID] = struct{}{}

		next, err := sum.Add(line.subTotal)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sum = next
	}
	if !sum.Equal(o.price) {
		errs = append(errs, fmt.Errorf("%w: price %s differs from lines total %s", ErrValidation, o.price, sum))
	}

	return errs
}

// CheckInvariants объединяет замечания ValidateInvariants в одну ошибку.
func (o *Order) CheckInvariants() error {
	return errors.Join(o.ValidateInvariants()...)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// OrderState — плоское представление заказа для хранилищ.
type OrderState struct {
	ID              OrderID
	PointOfSaleID   PointOfSaleID
	DistributorID   DistributorID
	DeliveryAddress Address
	Status          Status
	CreatedOn       time.Time
	ConfirmedOn     *time.Time
	RejectedOn      *time.Time
	DeliveredOn     *time.Time
	CanceledOn      *time.Time
	Price           Money
	Lines           []OrderLineState
	Version         int64
}

// State возвращает снимок заказа. Буфер событий в снимок не входит.
func (o *Order) State() OrderState {
	return OrderState{
		ID:              o.id,
		PointOfSaleID:   o.pointOfSaleID,
		DistributorID:   o.distributorID,
		DeliveryAddress: o.deliveryAddress,
		Status:          o.status,
		CreatedOn:       o.createdOn,
		ConfirmedOn:     copyTime(o.confirmedOn),
		RejectedOn:      copyTime(o.rejectedOn),
		DeliveredOn:     copyTime(o.deliveredOn),
		CanceledOn:      copyTime(o.canceledOn),
		Price:           o.price,
		Lines:           lo.Map(o.lines, func(l OrderLine, _ int) OrderLineState { return l.State() }),
		Version:         o.version,
	}
}

// RestoreOrder восстанавливает заказ из снимка.
func RestoreOrder(s OrderState) *Order {
	return &Order{
		id:              s.ID,
		pointOfSaleID:   s.PointOfSaleID,
		distributorID:   s.DistributorID,
		deliveryAddress: s.DeliveryAddress,
		status:          s.Status,
		createdOn:       s.CreatedOn,
		confirmedOn:     copyTime(s.ConfirmedOn),
		rejectedOn:      copyTime(s.RejectedOn),
		deliveredOn:     copyTime(s.DeliveredOn),
		canceledOn:      copyTime(s.CanceledOn),
		price:           s.Price,
		lines:           lo.Map(s.Lines, func(l OrderLineState, _ int) OrderLine { return RestoreOrderLine(l) }),
		version:         s.Version,
	}
}
