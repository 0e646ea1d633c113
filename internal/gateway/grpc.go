package gateway

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName = "exgate.Gateway"

	MethodGetBalances       = "/" + serviceName + "/GetBalances"
	MethodGetPrices         = "/" + serviceName + "/GetPrices"
	MethodGetOrder          = "/" + serviceName + "/GetOrder"
	MethodCreateMarketOrder = "/" + serviceName + "/CreateMarketOrder"
)

// GatewayServer is the server API of the exgate.Gateway service.
type GatewayServer interface {
	GetBalances(ctx context.Context, req *BalancesRequest) (*BalancesReply, error)
	GetPrices(ctx context.Context, req *PriceRequest) (*PricesReply, error)
	GetOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error)
	CreateMarketOrder(ctx context.Context, req *CreateMarketOrderRequest) (*OrderReply, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalances", Handler: unaryHandler(MethodGetBalances, GatewayServer.GetBalances)},
		{MethodName: "GetPrices", Handler: unaryHandler(MethodGetPrices, GatewayServer.GetPrices)},
		{MethodName: "GetOrder", Handler: unaryHandler(MethodGetOrder, GatewayServer.GetOrder)},
		{MethodName: "CreateMarketOrder", Handler: unaryHandler(MethodCreateMarketOrder, GatewayServer.CreateMarketOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exgate/gateway",
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req, Reply any](fullMethod string, call func(GatewayServer, context.Context, *Req) (*Reply, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GatewayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
