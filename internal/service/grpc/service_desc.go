package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя gRPC-сервиса. Запросы и ответы передаются как google.protobuf.Struct.
const ServiceName = "conaprole.orders.v1.OrderingService"

// Имена методов OrderingService.
const (
	MethodCreateOrder               = "CreateOrder"
	MethodBulkCreateOrders          = "BulkCreateOrders"
	MethodAddOrderLine              = "AddOrderLine"
	MethodRemoveOrderLine           = "RemoveOrderLine"
	MethodUpdateOrderLineQuantity   = "UpdateOrderLineQuantity"
	MethodUpdateOrderStatus         = "UpdateOrderStatus"
	MethodGetOrder                  = "GetOrder"
	MethodListOrders                = "ListOrders"
	MethodGetOrderTimeline          = "GetOrderTimeline"
	MethodRegisterDistributor       = "RegisterDistributor"
	MethodAddDistributorCategory    = "AddDistributorCategory"
	MethodRemoveDistributorCategory = "RemoveDistributorCategory"
	MethodGetDistributor            = "GetDistributor"
	MethodRegisterPointOfSale       = "RegisterPointOfSale"
	MethodActivatePointOfSale       = "ActivatePointOfSale"
	MethodDeactivatePointOfSale     = "DeactivatePointOfSale"
	MethodAssignDistributor         = "AssignDistributor"
	MethodUnassignDistributor       = "UnassignDistributor"
	MethodGetPointOfSale            = "GetPointOfSale"
	MethodCreateProduct             = "CreateProduct"
	MethodGetProduct                = "GetProduct"
)

// FullMethod возвращает путь метода вида /conaprole.orders.v1.OrderingService/CreateOrder.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// OrderingServer — серверная сторона OrderingService.
type OrderingServer interface {
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkCreateOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddOrderLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveOrderLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderLineQuantity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrderTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterDistributor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddDistributorCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveDistributorCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDistributor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterPointOfSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivatePointOfSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeactivatePointOfSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignDistributor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnassignDistributor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPointOfSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(OrderingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc описывает OrderingService для grpc.Server без сгенерированного кода.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderingServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodCreateOrder, OrderingServer.CreateOrder),
		unaryMethod(MethodBulkCreateOrders, OrderingServer.BulkCreateOrders),
		unaryMethod(MethodAddOrderLine, OrderingServer.AddOrderLine),
		unaryMethod(MethodRemoveOrderLine, OrderingServer.RemoveOrderLine),
		unaryMethod(MethodUpdateOrderLineQuantity, OrderingServer.UpdateOrderLineQuantity),
		unaryMethod(MethodUpdateOrderStatus, OrderingServer.UpdateOrderStatus),
		unaryMethod(MethodGetOrder, OrderingServer.GetOrder),
		unaryMethod(MethodListOrders, OrderingServer.ListOrders),
		unaryMethod(MethodGetOrderTimeline, OrderingServer.GetOrderTimeline),
		unaryMethod(MethodRegisterDistributor, OrderingServer.RegisterDistributor),
		unaryMethod(MethodAddDistributorCategory, OrderingServer.AddDistributorCategory),
		unaryMethod(MethodRemoveDistributorCategory, OrderingServer.RemoveDistributorCategory),
		unaryMethod(MethodGetDistributor, OrderingServer.GetDistributor),
		unaryMethod(MethodRegisterPointOfSale, OrderingServer.RegisterPointOfSale),
		unaryMethod(MethodActivatePointOfSale, OrderingServer.ActivatePointOfSale),
		unaryMethod(MethodDeactivatePointOfSale, OrderingServer.DeactivatePointOfSale),
		unaryMethod(MethodAssignDistributor, OrderingServer.AssignDistributor),
		unaryMethod(MethodUnassignDistributor, OrderingServer.UnassignDistributor),
		unaryMethod(MethodGetPointOfSale, OrderingServer.GetPointOfSale),
		unaryMethod(MethodCreateProduct, OrderingServer.CreateProduct),
		unaryMethod(MethodGetProduct, OrderingServer.GetProduct),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "conaprole/orders/v1/ordering.proto",
}

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterOrderingServer регистрирует реализацию на gRPC-сервере.
func RegisterOrderingServer(registrar grpc.ServiceRegistrar, srv OrderingServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// OrderingClient — тонкий клиент OrderingService.
type OrderingClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderingClient создаёт клиента поверх соединения.
func NewOrderingClient(cc grpc.ClientConnInterface) *OrderingClient {
	return &OrderingClient{cc: cc}
}

// Call вызывает метод по короткому имени (MethodCreateOrder и т.д.).
func (c *OrderingClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
