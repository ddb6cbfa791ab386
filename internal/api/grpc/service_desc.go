package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "siterent.ledger.v1.LedgerService"

type LedgerServiceServer interface {
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	GetOrderHistory(context.Context, *GetOrderHistoryRequest) (*HistoryResponse, error)
	GetSiteHistory(context.Context, *GetSiteHistoryRequest) (*HistoryResponse, error)
	GetSiteBalance(context.Context, *GetSiteBalanceRequest) (*SiteBalanceResponse, error)
	ListStock(context.Context, *ListStockRequest) (*ListStockResponse, error)
	ListOrdersByCustomer(context.Context, *ListOrdersByCustomerRequest) (*ListOrdersResponse, error)
	ListRentedItems(context.Context, *ListOrderItemsRequest) (*LineItemsResponse, error)
	ListReturnedItems(context.Context, *ListOrderItemsRequest) (*LineItemsResponse, error)

	CreateOrder(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	EditOrder(context.Context, *EditOrderRequest) (*OrderResponse, error)
	ReturnItems(context.Context, *ReturnItemsRequest) (*OrderResponse, error)
	RecordLoss(context.Context, *RecordLossRequest) (*OrderResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*Empty, error)

	AddPayment(context.Context, *AddPaymentRequest) (*PaymentResponse, error)
	EditPayment(context.Context, *EditPaymentRequest) (*PaymentResponse, error)
	DeletePayment(context.Context, *DeletePaymentRequest) (*Empty, error)

	AddStock(context.Context, *AddStockRequest) (*StockResponse, error)
	EditStock(context.Context, *EditStockRequest) (*StockResponse, error)
	DeleteStock(context.Context, *DeleteStockRequest) (*Empty, error)

	RecomputeSiteBalance(context.Context, *RecomputeSiteBalanceRequest) (*ReconciliationResponse, error)
	RebuildHistory(context.Context, *RebuildHistoryRequest) (*RebuildHistoryResponse, error)
}

func unary[Req, Resp any](name string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetOrder", LedgerServiceServer.GetOrder),
		unary("GetOrderHistory", LedgerServiceServer.GetOrderHistory),
		unary("GetSiteHistory", LedgerServiceServer.GetSiteHistory),
		unary("GetSiteBalance", LedgerServiceServer.GetSiteBalance),
		unary("ListStock", LedgerServiceServer.ListStock),
		unary("ListOrdersByCustomer", LedgerServiceServer.ListOrdersByCustomer),
		unary("ListRentedItems", LedgerServiceServer.ListRentedItems),
		unary("ListReturnedItems", LedgerServiceServer.ListReturnedItems),
		unary("CreateOrder", LedgerServiceServer.CreateOrder),
		unary("EditOrder", LedgerServiceServer.EditOrder),
		unary("ReturnItems", LedgerServiceServer.ReturnItems),
		unary("RecordLoss", LedgerServiceServer.RecordLoss),
		unary("DeleteOrder", LedgerServiceServer.DeleteOrder),
		unary("AddPayment", LedgerServiceServer.AddPayment),
		unary("EditPayment", LedgerServiceServer.EditPayment),
		unary("DeletePayment", LedgerServiceServer.DeletePayment),
		unary("AddStock", LedgerServiceServer.AddStock),
		unary("EditStock", LedgerServiceServer.EditStock),
		unary("DeleteStock", LedgerServiceServer.DeleteStock),
		unary("RecomputeSiteBalance", LedgerServiceServer.RecomputeSiteBalance),
		unary("RebuildHistory", LedgerServiceServer.RebuildHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "siterent/ledger/v1/ledger.proto",
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerServiceClient calls the ledger service with the JSON codec.
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

// Call invokes method (the bare method name, e.g. "CreateOrder") and decodes
// the reply into out.
func (c *LedgerServiceClient) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
