package gateway

import "exgate/internal/core"

type BalancesRequest struct {
	ExchangeName string `json:"exchange_name"`
}

type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type BalancesReply struct {
	Balances []Balance `json:"balances"`
}

// PriceRequest with no symbols asks for every listed symbol.
type PriceRequest struct {
	ExchangeName string   `json:"exchange_name"`
	Symbols      []string `json:"symbols"`
}

type Price struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type PricesReply struct {
	Prices []Price `json:"prices"`
}

type OrderRequest struct {
	ExchangeName  string `json:"exchange_name"`
	Symbol        string `json:"symbol"`
	ClientOrderID string `json:"client_order_id"`
}

type CreateMarketOrderRequest struct {
	ExchangeName  string `json:"exchange_name"`
	Symbol        string `json:"symbol"`
	Quantity      string `json:"quantity"`
	Side          string `json:"side"`
	ClientOrderID string `json:"client_order_id"`
}

// OrderReply timestamps are epoch milliseconds.
type OrderReply struct {
	Price            string `json:"price"`
	OriginalQuantity string `json:"original_quantity"`
	ExecutedQuantity string `json:"executed_quantity"`
	OrderStatus      string `json:"order_status"`
	TimeInForce      string `json:"time_in_force"`
	OrderType        string `json:"order_type"`
	Side             string `json:"side"`
	CreatedTimestamp int64  `json:"created_timestamp"`
	UpdatedTimestamp int64  `json:"updated_timestamp"`
	ClientOrderID    string `json:"client_order_id"`
}

func balancesReply(in []core.Balance) *BalancesReply {
	out := make([]Balance, 0, len(in))
	for _, b := range in {
		out = append(out, Balance{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
	}
	return &BalancesReply{Balances: out}
}

func pricesReply(in []core.Price) *PricesReply {
	out := make([]Price, 0, len(in))
	for _, p := range in {
		out = append(out, Price{Symbol: p.Symbol, Price: p.Price})
	}
	return &PricesReply{Prices: out}
}

func orderReply(o core.Order) *OrderReply {
	return &OrderReply{
		Price:            o.Price,
		OriginalQuantity: o.OrigQty,
		ExecutedQuantity: o.ExecutedQty,
		OrderStatus:      o.Status,
		TimeInForce:      o.TimeInForce,
		OrderType:        o.Type,
		Side:             o.Side,
		CreatedTimestamp: o.CreatedAt,
		UpdatedTimestamp: o.UpdatedAt,
		ClientOrderID:    o.ClientID,
	}
}
