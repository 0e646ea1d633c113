package exchange

import (
	"context"
	"time"

	"exgate/internal/core"
)

// Exchange is one venue behind the gateway. Implementations hold immutable
// credentials and are safe for concurrent use.
type Exchange interface {
	Name() string
	Balances(ctx context.Context) ([]core.Balance, error)
	// Prices returns every symbol when symbols is empty.
	Prices(ctx context.Context, symbols []string) ([]core.Price, error)
	QueryOrder(ctx context.Context, symbol, clientID string) (core.Order, error)
	// CreateMarketOrder expects an order that already passed Validate.
	CreateMarketOrder(ctx context.Context, order core.MarketOrder) (core.Order, error)
}

// Observer receives one call per outbound exchange request. err is nil on
// success.
type Observer interface {
	ObserveUpstream(exchange, endpoint string, err error, elapsed time.Duration)
}
