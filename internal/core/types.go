package core

type Side string

type OrderType string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// Balance amounts stay as the exchange's decimal text.
type Balance struct {
	Asset  string
	Free   string
	Locked string
}

type Price struct {
	Symbol string
	Price  string
}

// Order timestamps are epoch milliseconds, 0 when the exchange omitted them.
type Order struct {
	ClientID    string
	Price       string
	OrigQty     string
	ExecutedQty string
	Status      string
	TimeInForce string
	Type        string
	Side        string
	CreatedAt   int64
	UpdatedAt   int64
}

type MarketOrder struct {
	Symbol   string
	Side     Side
	Quantity string
	ClientID string
}
