package binance

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"

	"exgate/internal/core"
)

type balanceResponse struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// Balances is a pointer so an absent field can be told apart from an empty list.
type accountResponse struct {
	Balances *[]balanceResponse `json:"balances"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Timestamp fields stay raw: anything that is not an unsigned integer maps to 0.
type orderResponse struct {
	ClientOrderID string          `json:"clientOrderId"`
	Price         string          `json:"price"`
	OrigQty       string          `json:"origQty"`
	ExecutedQty   string          `json:"executedQty"`
	Status        string          `json:"status"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	Time          json.RawMessage `json:"time"`
	UpdateTime    json.RawMessage `json:"updateTime"`
	TransactTime  json.RawMessage `json:"transactTime"`
}

func (r orderResponse) toOrder() core.Order {
	return core.Order{
		ClientID:    r.ClientOrderID,
		Price:       r.Price,
		OrigQty:     r.OrigQty,
		ExecutedQty: r.ExecutedQty,
		Status:      r.Status,
		TimeInForce: r.TimeInForce,
		Type:        r.Type,
		Side:        r.Side,
		CreatedAt:   millis(r.Time),
		UpdatedAt:   millis(r.UpdateTime),
	}
}

func millis(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || v > math.MaxInt64 {
		return 0
	}
	return int64(v)
}
