package binance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"exgate/internal/config"
	"exgate/internal/core"
	"exgate/internal/exchange"
)

const (
	Name = "Binance"

	defaultRecvWindowMs = 5000
	defaultUserAgent    = "exgate"

	accountEndpoint     = "/api/v3/account"
	tickerPriceEndpoint = "/api/v3/ticker/price"
	orderEndpoint       = "/api/v3/order"
)

type Client struct {
	apiKey     string
	signer     *Signer
	recvWindow int64
	userAgent  string
	httpClient *http.Client
	observer   exchange.Observer
}

type Options struct {
	Credentials    Credentials
	RecvWindowMs   int64
	HTTPTimeoutSec int64
	UserAgent      string
	Observer       exchange.Observer
}

var _ exchange.Exchange = (*Client)(nil)

func NewClient(cfg config.ExchangeConfig, observer exchange.Observer) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("api_key/api_secret required")
	}
	if cfg.RestBaseURL == "" {
		return nil, errors.New("rest_base_url required")
	}
	return NewClientWithOptions(Options{
		Credentials: Credentials{
			APIKey:    cfg.APIKey,
			SecretKey: cfg.APISecret,
			Host:      cfg.RestBaseURL,
		},
		RecvWindowMs:   cfg.RecvWindowMs,
		HTTPTimeoutSec: cfg.HTTPTimeoutSec,
		UserAgent:      cfg.UserAgent,
		Observer:       observer,
	}), nil
}

// NewClientWithOptions applies defaults; a zero HTTPTimeoutSec leaves the
// transport without a client-side timeout.
func NewClientWithOptions(opts Options) *Client {
	recvWindow := opts.RecvWindowMs
	if recvWindow <= 0 {
		recvWindow = defaultRecvWindowMs
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := &http.Client{}
	if opts.HTTPTimeoutSec > 0 {
		httpClient.Timeout = time.Duration(opts.HTTPTimeoutSec) * time.Second
	}
	return &Client{
		apiKey:     opts.Credentials.APIKey,
		signer:     NewSigner(opts.Credentials),
		recvWindow: recvWindow,
		userAgent:  userAgent,
		httpClient: httpClient,
		observer:   opts.Observer,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Balances(ctx context.Context) ([]core.Balance, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, accountEndpoint, Params{})
	if err != nil {
		return nil, err
	}
	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.Serialization(err)
	}
	if resp.Balances == nil {
		return nil, core.Malformed("binance no balance field")
	}
	balances := make([]core.Balance, 0, len(*resp.Balances))
	for _, b := range *resp.Balances {
		balances = append(balances, core.Balance{
			Asset:  b.Asset,
			Free:   b.Free,
			Locked: b.Locked,
		})
	}
	return balances, nil
}

func (c *Client) Prices(ctx context.Context, symbols []string) ([]core.Price, error) {
	params := Params{}
	if len(symbols) > 0 {
		params["symbols"] = encodeSymbols(symbols)
	}
	body, err := c.publicRequest(ctx, tickerPriceEndpoint, params)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, core.Serialization(errors.New("invalid json in ticker price response"))
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, core.Malformed("binance response is not as expected")
	}
	var resp []tickerPriceResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, core.Serialization(err)
	}
	prices := make([]core.Price, 0, len(resp))
	for _, p := range resp {
		prices = append(prices, core.Price{Symbol: p.Symbol, Price: p.Price})
	}
	return prices, nil
}

func (c *Client) QueryOrder(ctx context.Context, symbol, clientID string) (core.Order, error) {
	params := Params{
		"symbol":            symbol,
		"origClientOrderId": clientID,
	}
	body, err := c.signedRequest(ctx, http.MethodGet, orderEndpoint, params)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, core.Serialization(err)
	}
	order := resp.toOrder()
	if order.ClientID == "" {
		order.ClientID = clientID
	}
	return order, nil
}

func (c *Client) CreateMarketOrder(ctx context.Context, order core.MarketOrder) (core.Order, error) {
	clientID := order.ClientID
	if clientID == "" {
		clientID = newClientOrderID()
	}
	params := Params{
		"symbol":           order.Symbol,
		"side":             string(order.Side),
		"type":             string(core.Market),
		"quantity":         strings.TrimSpace(order.Quantity),
		"newClientOrderId": clientID,
	}
	body, err := c.signedRequest(ctx, http.MethodPost, orderEndpoint, params)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, core.Serialization(err)
	}
	placed := resp.toOrder()
	// New order acks carry transactTime instead of time/updateTime.
	if placed.CreatedAt == 0 {
		placed.CreatedAt = millis(resp.TransactTime)
	}
	if placed.UpdatedAt == 0 {
		placed.UpdatedAt = millis(resp.TransactTime)
	}
	if placed.ClientID == "" {
		placed.ClientID = clientID
	}
	return placed, nil
}

func (c *Client) signedRequest(ctx context.Context, method, endpoint string, params Params) ([]byte, error) {
	query, err := c.signer.BuildSignedRequest(params, c.recvWindow)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, endpoint, c.signer.Sign(endpoint, query), true)
}

func (c *Client) publicRequest(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, c.signer.URL(endpoint, BuildRequest(params)), false)
}

func (c *Client) do(ctx context.Context, method, endpoint, rawURL string, signed bool) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(Name, endpoint, err, time.Since(start))
		}
		if err != nil {
			logs.Errorf("event=upstream_failed exchange=%s method=%s endpoint=%s kind=%s err=%q",
				Name, method, endpoint, core.KindOf(err), err.Error())
		}
	}()

	// The caller's cancellation is dropped: once sent, a call runs until the
	// exchange answers or the transport fails.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, rawURL, nil)
	if err != nil {
		return nil, core.Transport(stripURL(err, method, endpoint))
	}
	req.Header.Set("User-Agent", c.userAgent)
	if signed {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.Transport(stripURL(err, method, endpoint))
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.Transport(err)
	}
	return classifyResponse(resp.StatusCode, raw)
}

// stripURL drops the signed query string that *url.Error carries in its text.
func stripURL(err error, method, endpoint string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s %s: %w", method, endpoint, ue.Err)
	}
	return err
}

// encodeSymbols renders ["A","B"] the way the exchange expects it in a query:
// percent-encoded, with the ", " separator left as a bare comma.
func encodeSymbols(symbols []string) string {
	quoted := make([]string, 0, len(symbols))
	for _, s := range symbols {
		quoted = append(quoted, strconv.Quote(s))
	}
	literal := "[" + strings.Join(quoted, ", ") + "]"
	return strings.ReplaceAll(percentEncode(literal), "%2C%20", ",")
}

// percentEncode escapes every byte outside the RFC 3986 unreserved set.
func percentEncode(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case 'A' <= ch && ch <= 'Z', 'a' <= ch && ch <= 'z', '0' <= ch && ch <= '9',
			ch == '-', ch == '_', ch == '.', ch == '~':
			b.WriteByte(ch)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[ch>>4])
			b.WriteByte(hexDigits[ch&0x0f])
		}
	}
	return b.String()
}

func newClientOrderID() string {
	return uuid.NewString()
}
