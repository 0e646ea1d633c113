// Package gateway exposes the exchange registry as the exgate.Gateway RPC service.
package gateway

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"exgate/internal/alert"
	"exgate/internal/core"
	"exgate/internal/exchange"
)

// Service validates each call, routes it by exchange name and flattens adapter
// failures into RPC statuses. Every argument check runs before any network I/O.
type Service struct {
	registry *exchange.Registry
	alerter  alert.Alerter
}

var _ GatewayServer = (*Service)(nil)

func NewService(registry *exchange.Registry) *Service {
	return &Service{registry: registry}
}

// SetAlerter must be called before the service starts serving.
func (s *Service) SetAlerter(a alert.Alerter) {
	s.alerter = a
}

func (s *Service) GetBalances(ctx context.Context, req *BalancesRequest) (*BalancesReply, error) {
	ex, err := s.registry.Lookup(req.ExchangeName)
	if err != nil {
		return nil, toStatus(err)
	}
	balances, err := ex.Balances(ctx)
	if err != nil {
		return nil, s.fail(ex.Name(), "GetBalances", err)
	}
	return balancesReply(balances), nil
}

func (s *Service) GetPrices(ctx context.Context, req *PriceRequest) (*PricesReply, error) {
	ex, err := s.registry.Lookup(req.ExchangeName)
	if err != nil {
		return nil, toStatus(err)
	}
	prices, err := ex.Prices(ctx, req.Symbols)
	if err != nil {
		return nil, s.fail(ex.Name(), "GetPrices", err)
	}
	return pricesReply(prices), nil
}

func (s *Service) GetOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	ex, err := s.registry.Lookup(req.ExchangeName)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := core.ValidateSymbol(req.Symbol); err != nil {
		return nil, toStatus(err)
	}
	if req.ClientOrderID == "" {
		return nil, toStatus(core.Validation("param client_order_id is required"))
	}
	order, err := ex.QueryOrder(ctx, req.Symbol, req.ClientOrderID)
	if err != nil {
		return nil, s.fail(ex.Name(), "GetOrder", err)
	}
	return orderReply(order), nil
}

func (s *Service) CreateMarketOrder(ctx context.Context, req *CreateMarketOrderRequest) (*OrderReply, error) {
	ex, err := s.registry.Lookup(req.ExchangeName)
	if err != nil {
		return nil, toStatus(err)
	}
	order := core.MarketOrder{
		Symbol:   req.Symbol,
		Side:     core.Side(req.Side),
		Quantity: req.Quantity,
		ClientID: req.ClientOrderID,
	}
	if err := order.Validate(); err != nil {
		return nil, toStatus(err)
	}
	placed, err := ex.CreateMarketOrder(ctx, order)
	if err != nil {
		return nil, s.fail(ex.Name(), "CreateMarketOrder", err)
	}
	return orderReply(placed), nil
}

func (s *Service) fail(exchangeName, method string, err error) error {
	if s.alerter != nil {
		switch kind := core.KindOf(err); kind {
		case core.KindUnauthorized, core.KindUnavailable, core.KindServer:
			s.alerter.Raise(alert.Event{
				Name:     kind.String(),
				Exchange: exchangeName,
				Method:   method,
				Detail:   err.Error(),
			})
		}
	}
	return toStatus(err)
}

// toStatus keeps only two RPC outcomes: InvalidArgument for bad caller input
// and Unknown, carrying the error text, for everything else.
func toStatus(err error) error {
	if core.IsKind(err, core.KindValidation) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}
