package ordering

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// OrderLineInput — строка нового заказа: продукт по внешнему идентификатору и количество.
type OrderLineInput struct {
	ExternalProductID string
	Quantity          int
}

// CreateOrderCommand — заказ точки продаж у дистрибьютора.
// Точка и дистрибьютор задаются номерами телефонов.
type CreateOrderCommand struct {
	PointOfSalePhoneNumber string
	DistributorPhoneNumber string
	CurrencyCode           string
	DeliveryAddress        domain.Address
	Lines                  []OrderLineInput
}

// CreateOrder создаёт заказ. Каждая категория продукта должна быть назначена
// дистрибьютору в этой точке продаж.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (order *domain.Order, err error) {
	finish := s.begin("create_order", log.Fields{
		"point_of_sale_phone": cmd.PointOfSalePhoneNumber,
		"distributor_phone":   cmd.DistributorPhoneNumber,
	})
	defer func() { finish(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order, err = s.buildOrder(cmd)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(order); err != nil {
		return nil, err
	}
	s.dispatch(order.DrainEvents())
	return order, nil
}

// BulkCreateOrders создаёт пачку заказов по принципу всё или ничего: сначала
// каждый заказ проходит те же проверки, что и в CreateOrder, затем все
// сохраняются одной операцией репозитория. Ошибка любого заказа отменяет пачку
// и содержит его индекс.
func (s *Service) BulkCreateOrders(ctx context.Context, cmds []CreateOrderCommand) (orders []*domain.Order, err error) {
	finish := s.begin("bulk_create_orders", log.Fields{"orders": len(cmds)})
	defer func() { finish(err) }()

	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: at least one order is required", domain.ErrValidation)
	}

	orders = make([]*domain.Order, 0, len(cmds))
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		order, err := s.buildOrder(cmd)
		if err != nil {
			return nil, fmt.Errorf("order #%d: %w", i, err)
		}
		orders = append(orders, order)
	}

	if err := s.orders.CreateAll(orders); err != nil {
		return nil, err
	}
	for _, order := range orders {
		s.dispatch(order.DrainEvents())
	}
	return orders, nil
}

// buildOrder проверяет команду и собирает новый заказ, ничего не сохраняя.
func (s *Service) buildOrder(cmd CreateOrderCommand) (*domain.Order, error) {
	currency, err := domain.CurrencyFromCode(cmd.CurrencyCode)
	if err != nil {
		return nil, err
	}
	if len(cmd.Lines) == 0 {
		return nil, domain.ErrOrderHasNoLines
	}

	pointOfSale, err := s.pointsOfSale.GetByPhoneNumber(cmd.PointOfSalePhoneNumber)
	if err != nil {
		return nil, err
	}
	if !pointOfSale.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPointOfSaleInactive, pointOfSale.PhoneNumber())
	}
	distributor, err := s.distributors.GetByPhoneNumber(cmd.DistributorPhoneNumber)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		item, err := s.resolveLineItem(pointOfSale, distributor.ID(), line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order, err := domain.NewOrder(pointOfSale.ID(), distributor.ID(), cmd.DeliveryAddress, currency, s.now(), items)
	if err != nil {
		return nil, err
	}
	if err := order.CheckInvariants(); err != nil {
		return nil, err
	}
	return order, nil
}

// resolveLineItem находит продукт и проверяет, что дистрибьютор назначен точке на его категорию.
func (s *Service) resolveLineItem(pointOfSale *domain.PointOfSale, distributorID domain.DistributorID, in OrderLineInput) (domain.LineItem, error) {
	quantity, err := domain.NewQuantity(in.Quantity)
	if err != nil {
		return domain.LineItem{}, err
	}
	product, err := s.products.GetByExternalID(in.ExternalProductID)
	if err != nil {
		return domain.LineItem{}, err
	}
	if !pointOfSale.IsAssigned(distributorID, product.Category()) {
		return domain.LineItem{}, fmt.Errorf("%w: category %s", domain.ErrDistributorNotAssigned, product.Category())
	}
	return domain.LineItem{Product: product.Snapshot(), Quantity: quantity}, nil
}

// AddOrderLineCommand добавляет продукт в существующий заказ.
type AddOrderLineCommand struct {
	OrderID           string
	ExternalProductID string
	Quantity          int
}

// AddOrderLine добавляет строку и возвращает её.
func (s *Service) AddOrderLine(ctx context.Context, cmd AddOrderLineCommand) (line domain.OrderLine, err error) {
	finish := s.begin("add_order_line", log.Fields{"order_id": cmd.OrderID})
	defer func() { finish(err) }()

	orderID, err := domain.ParseID[domain.OrderID](cmd.OrderID)
	if err != nil {
		return domain.OrderLine{}, err
	}

	_, err = unitOfWork(ctx, s,
		func() (*domain.Order, error) { return s.orders.Get(orderID) },
		func(order *domain.Order) error {
			pointOfSale, err := s.pointsOfSale.Get(order.PointOfSaleID())
			if err != nil {
				return err
			}
			item, err := s.resolveLineItem(pointOfSale, order.DistributorID(), OrderLineInput{
				ExternalProductID: cmd.ExternalProductID,
				Quantity:          cmd.Quantity,
			})
			if err != nil {
				return err
			}
			line, err = order.AddProduct(item.Product, item.Quantity, s.now())
			if err != nil {
				return err
			}
			return order.CheckInvariants()
		},
		s.orders.Save,
	)
	if err != nil {
		return domain.OrderLine{}, err
	}
	return line, nil
}

// RemoveOrderLine удаляет строку заказа. Последнюю строку удалить нельзя.
func (s *Service) RemoveOrderLine(ctx context.Context, orderID, lineID string) (order *domain.Order, err error) {
	finish := s.begin("remove_order_line", log.Fields{"order_id": orderID, "line_id": lineID})
	defer func() { finish(err) }()

	oid, lid, err := parseOrderLine(orderID, lineID)
	if err != nil {
		return nil, err
	}
	return s.mutateOrder(ctx, oid, func(order *domain.Order) error {
		return order.RemoveLine(lid)
	})
}

// UpdateLineQuantity меняет количество в строке заказа.
func (s *Service) UpdateLineQuantity(ctx context.Context, orderID, lineID string, quantity int) (order *domain.Order, err error) {
	finish := s.begin("update_line_quantity", log.Fields{"order_id": orderID, "line_id": lineID})
	defer func() { finish(err) }()

	oid, lid, err := parseOrderLine(orderID, lineID)
	if err != nil {
		return nil, err
	}
	q, err := domain.NewQuantity(quantity)
	if err != nil {
		return nil, err
	}
	return s.mutateOrder(ctx, oid, func(order *domain.Order) error {
		return order.UpdateLineQuantity(lid, q)
	})
}

// UpdateOrderStatus выставляет статус заказа. Вернуть заказ в created нельзя;
// остальные переходы не ограничиваются.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, rawStatus string) (order *domain.Order, err error) {
	finish := s.begin("update_order_status", log.Fields{"order_id": orderID, "status": rawStatus})
	defer func() { finish(err) }()

	oid, err := domain.ParseID[domain.OrderID](orderID)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if status == domain.StatusCreated {
		return nil, domain.ErrStatusCreatedNotAllowed
	}
	return s.mutateOrder(ctx, oid, func(order *domain.Order) error {
		return order.UpdateStatus(status, s.now())
	})
}

func (s *Service) mutateOrder(ctx context.Context, id domain.OrderID, mutate func(*domain.Order) error) (*domain.Order, error) {
	return unitOfWork(ctx, s,
		func() (*domain.Order, error) { return s.orders.Get(id) },
		func(order *domain.Order) error {
			if err := mutate(order); err != nil {
				return err
			}
			return order.CheckInvariants()
		},
		s.orders.Save,
	)
}

func parseOrderLine(orderID, lineID string) (domain.OrderID, domain.OrderLineID, error) {
	oid, err := domain.ParseID[domain.OrderID](orderID)
	if err != nil {
		return domain.OrderID{}, domain.OrderLineID{}, err
	}
	lid, err := domain.ParseID[domain.OrderLineID](lineID)
	if err != nil {
		return domain.OrderID{}, domain.OrderLineID{}, err
	}
	return oid, lid, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	id, err := domain.ParseID[domain.OrderID](orderID)
	if err != nil {
		return nil, err
	}
	return s.orders.Get(id)
}

// ListOrdersByPointOfSale возвращает заказы точки продаж, новые первыми.
func (s *Service) ListOrdersByPointOfSale(_ context.Context, pointOfSaleID string, limit int) ([]*domain.Order, error) {
	id, err := domain.ParseID[domain.PointOfSaleID](pointOfSaleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.pointsOfSale.Get(id); err != nil {
		return nil, err
	}
	return s.orders.ListByPointOfSale(id, limit)
}

// ListOrdersByDistributor возвращает заказы дистрибьютора, новые первыми.
func (s *Service) ListOrdersByDistributor(_ context.Context, distributorID string, limit int) ([]*domain.Order, error) {
	id, err := domain.ParseID[domain.DistributorID](distributorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.distributors.Get(id); err != nil {
		return nil, err
	}
	return s.orders.ListByDistributor(id, limit)
}

// GetOrderTimeline возвращает историю событий заказа в хронологическом порядке.
func (s *Service) GetOrderTimeline(_ context.Context, orderID string) ([]domain.TimelineEvent, error) {
	id, err := domain.ParseID[domain.OrderID](orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.Get(id); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(id.String())
}
