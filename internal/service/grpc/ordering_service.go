// Package grpcsvc публикует сервис заказов по gRPC.
package grpcsvc

import (
	"context"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
	"github.com/vladislavdragonenkov/dairy-oms/internal/service/ordering"
)

const defaultListOrdersLimit = 100

// OrderingService реализует OrderingServer поверх ordering.Service.
type OrderingService struct {
	ordering *ordering.Service
	logger   *log.Entry
}

// NewOrderingService конструирует gRPC-обёртку.
func NewOrderingService(svc *ordering.Service, logger *log.Entry) *OrderingService {
	if logger == nil {
		logger = log.WithField("component", "grpc")
	}
	return &OrderingService{ordering: svc, logger: logger}
}

// fail переводит ошибку в статус; внутренние ошибки логируются, доменные уже залогированы сервисом.
func (s *OrderingService) fail(method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.WithError(err).WithField("method", method).Error("request failed")
	}
	return st
}

func (s *OrderingService) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cmd, err := createOrderCommand(newRequest(in))
	if err != nil {
		return nil, err
	}

	order, err := s.ordering.CreateOrder(ctx, cmd)
	if err != nil {
		return nil, s.fail(MethodCreateOrder, err)
	}
	return respond(map[string]any{"order": encodeOrder(order)})
}

// BulkCreateOrders принимает список orders в формате CreateOrder и создаёт все
// заказы или ни одного.
func (s *OrderingService) BulkCreateOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	items := newRequest(in).list("orders")
	cmds := make([]ordering.CreateOrderCommand, 0, len(items))
	for i, item := range items {
		cmd, err := createOrderCommand(item)
		if err != nil {
			return nil, status.Errorf(status.Code(err), "orders[%d]: %s", i, status.Convert(err).Message())
		}
		cmds = append(cmds, cmd)
	}

	orders, err := s.ordering.BulkCreateOrders(ctx, cmds)
	if err != nil {
		return nil, s.fail(MethodBulkCreateOrders, err)
	}
	return respond(map[string]any{
		"orders": lo.Map(orders, func(o *domain.Order, _ int) any { return encodeOrder(o) }),
	})
}

func createOrderCommand(req request) (ordering.CreateOrderCommand, error) {
	lines := make([]ordering.OrderLineInput, 0, len(req.list("lines")))
	for _, line := range req.list("lines") {
		quantity, err := line.integer("quantity")
		if err != nil {
			return ordering.CreateOrderCommand{}, err
		}
		lines = append(lines, ordering.OrderLineInput{
			ExternalProductID: line.str("external_product_id"),
			Quantity:          quantity,
		})
	}
	return ordering.CreateOrderCommand{
		PointOfSalePhoneNumber: req.str("point_of_sale_phone_number"),
		DistributorPhoneNumber: req.str("distributor_phone_number"),
		CurrencyCode:           req.str("currency"),
		DeliveryAddress:        req.address("delivery_address"),
		Lines:                  lines,
	}, nil
}

func (s *OrderingService) AddOrderLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	orderID, err := req.required("order_id")
	if err != nil {
		return nil, err
	}
	quantity, err := req.integer("quantity")
	if err != nil {
		return nil, err
	}

	line, err := s.ordering.AddOrderLine(ctx, ordering.AddOrderLineCommand{
		OrderID:           orderID,
		ExternalProductID: req.str("external_product_id"),
		Quantity:          quantity,
	})
	if err != nil {
		return nil, s.fail(MethodAddOrderLine, err)
	}
	return respond(map[string]any{"line": encodeLine(line)})
}

func (s *OrderingService) RemoveOrderLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	orderID, err := req.required("order_id")
	if err != nil {
		return nil, err
	}
	lineID, err := req.required("line_id")
	if err != nil {
		return nil, err
	}

	order, err := s.ordering.RemoveOrderLine(ctx, orderID, lineID)
	if err != nil {
		return nil, s.fail(MethodRemoveOrderLine, err)
	}
	return respond(map[string]any{"order": encodeOrder(order)})
}

func (s *OrderingService) UpdateOrderLineQuantity(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	orderID, err := req.required("order_id")
	if err != nil {
		return nil, err
	}
	lineID, err := req.required("line_id")
	if err != nil {
		return nil, err
	}
	quantity, err := req.integer("quantity")
	if err != nil {
		return nil, err
	}

	order, err := s.ordering.UpdateLineQuantity(ctx, orderID, lineID, quantity)
	if err != nil {
		return nil, s.fail(MethodUpdateOrderLineQuantity, err)
	}
	return respond(map[string]any{"order": encodeOrder(order)})
}

func (s *OrderingService) UpdateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	orderID, err := req.required("order_id")
	if err != nil {
		return nil, err
	}
	rawStatus, err := req.required("status")
	if err != nil {
		return nil, err
	}

	order, err := s.ordering.UpdateOrderStatus(ctx, orderID, rawStatus)
	if err != nil {
		return nil, s.fail(MethodUpdateOrderStatus, err)
	}
	return respond(map[string]any{"order": encodeOrder(order)})
}

func (s *OrderingService) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := newRequest(in).required("order_id")
	if err != nil {
		return nil, err
	}

	order, err := s.ordering.GetOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail(MethodGetOrder, err)
	}
	return respond(map[string]any{"order": encodeOrder(order)})
}

// ListOrders возвращает заказы точки продаж или дистрибьютора; нужен ровно один из фильтров.
func (s *OrderingService) ListOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	limit, err := req.integer("limit")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListOrdersLimit
	}

	pointOfSaleID, distributorID := req.str("point_of_sale_id"), req.str("distributor_id")
	var orders []*domain.Order
	switch {
	case pointOfSaleID != "" && distributorID != "":
		return nil, status.Error(codes.InvalidArgument, "only one of point_of_sale_id and distributor_id may be set")
	case pointOfSaleID != "":
		orders, err = s.ordering.ListOrdersByPointOfSale(ctx, pointOfSaleID, limit)
	case distributorID != "":
		orders, err = s.ordering.ListOrdersByDistributor(ctx, distributorID, limit)
	default:
		return nil, status.Error(codes.InvalidArgument, "point_of_sale_id or distributor_id is required")
	}
	if err != nil {
		return nil, s.fail(MethodListOrders, err)
	}
	return respond(map[string]any{
		"orders": lo.Map(orders, func(o *domain.Order, _ int) any { return encodeOrder(o) }),
	})
}

func (s *OrderingService) GetOrderTimeline(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := newRequest(in).required("order_id")
	if err != nil {
		return nil, err
	}

	events, err := s.ordering.GetOrderTimeline(ctx, orderID)
	if err != nil {
		return nil, s.fail(MethodGetOrderTimeline, err)
	}
	return respond(map[string]any{
		"order_id": orderID,
		"events":   lo.Map(events, func(e domain.TimelineEvent, _ int) any { return encodeTimelineEvent(e) }),
	})
}

func (s *OrderingService) RegisterDistributor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	distributor, err := s.ordering.RegisterDistributor(ctx, ordering.RegisterDistributorCommand{
		PhoneNumber: req.str("phone_number"),
		Name:        req.str("name"),
		Address:     req.address("address"),
		Categories:  req.strings("categories"),
	})
	if err != nil {
		return nil, s.fail(MethodRegisterDistributor, err)
	}
	return respond(map[string]any{"distributor": encodeDistributor(distributor)})
}

func (s *OrderingService) AddDistributorCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.changeDistributorCategory(ctx, in, MethodAddDistributorCategory, s.ordering.AddDistributorCategory)
}

func (s *OrderingService) RemoveDistributorCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.changeDistributorCategory(ctx, in, MethodRemoveDistributorCategory, s.ordering.RemoveDistributorCategory)
}

func (s *OrderingService) changeDistributorCategory(
	ctx context.Context,
	in *structpb.Struct,
	method string,
	change func(ctx context.Context, distributorID, category string) (*domain.Distributor, error),
) (*structpb.Struct, error) {
	req := newRequest(in)
	distributorID, err := req.required("distributor_id")
	if err != nil {
		return nil, err
	}
	category, err := req.required("category")
	if err != nil {
		return nil, err
	}

	distributor, err := change(ctx, distributorID, category)
	if err != nil {
		return nil, s.fail(method, err)
	}
	return respond(map[string]any{"distributor": encodeDistributor(distributor)})
}

func (s *OrderingService) GetDistributor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	distributorID, err := newRequest(in).required("distributor_id")
	if err != nil {
		return nil, err
	}

	distributor, err := s.ordering.GetDistributor(ctx, distributorID)
	if err != nil {
		return nil, s.fail(MethodGetDistributor, err)
	}
	return respond(map[string]any{"distributor": encodeDistributor(distributor)})
}

func (s *OrderingService) RegisterPointOfSale(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	pointOfSale, err := s.ordering.RegisterPointOfSale(ctx, ordering.RegisterPointOfSaleCommand{
		Name:        req.str("name"),
		PhoneNumber: req.str("phone_number"),
		Address:     req.address("address"),
	})
	if err != nil {
		return nil, s.fail(MethodRegisterPointOfSale, err)
	}
	return respond(map[string]any{"point_of_sale": encodePointOfSale(pointOfSale)})
}

func (s *OrderingService) ActivatePointOfSale(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.togglePointOfSale(ctx, in, MethodActivatePointOfSale, s.ordering.ActivatePointOfSale)
}

func (s *OrderingService) DeactivatePointOfSale(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.togglePointOfSale(ctx, in, MethodDeactivatePointOfSale, s.ordering.DeactivatePointOfSale)
}

func (s *OrderingService) togglePointOfSale(
	ctx context.Context,
	in *structpb.Struct,
	method string,
	toggle func(ctx context.Context, pointOfSaleID string) (*domain.PointOfSale, error),
) (*structpb.Struct, error) {
	pointOfSaleID, err := newRequest(in).required("point_of_sale_id")
	if err != nil {
		return nil, err
	}

	pointOfSale, err := toggle(ctx, pointOfSaleID)
	if err != nil {
		return nil, s.fail(method, err)
	}
	return respond(map[string]any{"point_of_sale": encodePointOfSale(pointOfSale)})
}

func (s *OrderingService) AssignDistributor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	assignment, err := s.ordering.AssignDistributor(ctx, ordering.AssignDistributorCommand{
		PointOfSaleID: req.str("point_of_sale_id"),
		DistributorID: req.str("distributor_id"),
		Category:      req.str("category"),
	})
	if err != nil {
		return nil, s.fail(MethodAssignDistributor, err)
	}
	return respond(map[string]any{"assignment": encodeAssignment(assignment)})
}

func (s *OrderingService) UnassignDistributor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	pointOfSale, err := s.ordering.UnassignDistributor(ctx, ordering.UnassignDistributorCommand{
		PointOfSaleID: req.str("point_of_sale_id"),
		DistributorID: req.str("distributor_id"),
		Category:      req.str("category"),
	})
	if err != nil {
		return nil, s.fail(MethodUnassignDistributor, err)
	}
	return respond(map[string]any{"point_of_sale": encodePointOfSale(pointOfSale)})
}

func (s *OrderingService) GetPointOfSale(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	pointOfSaleID, err := newRequest(in).required("point_of_sale_id")
	if err != nil {
		return nil, err
	}

	pointOfSale, err := s.ordering.GetPointOfSale(ctx, pointOfSaleID)
	if err != nil {
		return nil, s.fail(MethodGetPointOfSale, err)
	}
	return respond(map[string]any{"point_of_sale": encodePointOfSale(pointOfSale)})
}

func (s *OrderingService) CreateProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	product, err := s.ordering.CreateProduct(ctx, ordering.CreateProductCommand{
		ExternalID:   req.str("external_product_id"),
		Name:         req.str("name"),
		UnitPrice:    req.str("unit_price"),
		CurrencyCode: req.str("currency"),
		Category:     req.str("category"),
		Description:  req.str("description"),
	})
	if err != nil {
		return nil, s.fail(MethodCreateProduct, err)
	}
	return respond(map[string]any{"product": encodeProduct(product)})
}

func (s *OrderingService) GetProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	externalID, err := newRequest(in).required("external_product_id")
	if err != nil {
		return nil, err
	}

	product, err := s.ordering.GetProduct(ctx, externalID)
	if err != nil {
		return nil, s.fail(MethodGetProduct, err)
	}
	return respond(map[string]any{"product": encodeProduct(product)})
}

var _ OrderingServer = (*OrderingService)(nil)
