package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"exgate/internal/gateway"
)

type stubGateway struct {
	lastPrices *gateway.PriceRequest
	lastMarket *gateway.CreateMarketOrderRequest
}

func (s *stubGateway) GetBalances(ctx context.Context, req *gateway.BalancesRequest) (*gateway.BalancesReply, error) {
	return &gateway.BalancesReply{Balances: []gateway.Balance{{Asset: "BTC", Free: "1.0", Locked: "0.0"}}}, nil
}

func (s *stubGateway) GetPrices(ctx context.Context, req *gateway.PriceRequest) (*gateway.PricesReply, error) {
	s.lastPrices = req
	return &gateway.PricesReply{Prices: []gateway.Price{}}, nil
}

func (s *stubGateway) GetOrder(ctx context.Context, req *gateway.OrderRequest) (*gateway.OrderReply, error) {
	return nil, status.Error(codes.InvalidArgument, "param client_order_id is required")
}

func (s *stubGateway) CreateMarketOrder(ctx context.Context, req *gateway.CreateMarketOrderRequest) (*gateway.OrderReply, error) {
	s.lastMarket = req
	return &gateway.OrderReply{OrderStatus: "FILLED", ClientOrderID: req.ClientOrderID}, nil
}

func startStub(t *testing.T) (string, *stubGateway) {
	t.Helper()
	stub := &stubGateway{}
	server := grpc.NewServer()
	gateway.RegisterGatewayServer(server, stub)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)
	return lis.Addr().String(), stub
}

func TestBalancesPrintsJSON(t *testing.T) {
	addr, _ := startStub(t)
	var out bytes.Buffer
	if err := run([]string{"-addr", addr, "balances"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	var reply gateway.BalancesReply
	if err := json.Unmarshal(out.Bytes(), &reply); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, out.String())
	}
	if len(reply.Balances) != 1 || reply.Balances[0].Asset != "BTC" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestPricesUppercasesSymbols(t *testing.T) {
	addr, stub := startStub(t)
	if err := run([]string{"-addr", addr, "prices", "ethbtc", " ", "LTCBTC"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got := stub.lastPrices
	if got == nil || got.ExchangeName != "Binance" || strings.Join(got.Symbols, ",") != "ETHBTC,LTCBTC" {
		t.Fatalf("prices request = %+v", got)
	}
}

func TestMarketPassesFlags(t *testing.T) {
	addr, stub := startStub(t)
	var out bytes.Buffer
	err := run([]string{"-addr", addr, "market", "-symbol", "BTCUSDT", "-side", "SELL", "-quantity", "0.1", "-client-order-id", "cid"}, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := gateway.CreateMarketOrderRequest{ExchangeName: "Binance", Symbol: "BTCUSDT", Side: "SELL", Quantity: "0.1", ClientOrderID: "cid"}
	if stub.lastMarket == nil || *stub.lastMarket != want {
		t.Fatalf("market request = %+v", stub.lastMarket)
	}
	if !strings.Contains(out.String(), `"order_status": "FILLED"`) {
		t.Fatalf("output = %s", out.String())
	}
}

func TestStatusErrorsAreReported(t *testing.T) {
	addr, _ := startStub(t)
	err := run([]string{"-addr", addr, "order", "-symbol", "BTCUSDT"}, &bytes.Buffer{})
	if err == nil || err.Error() != "InvalidArgument: param client_order_id is required" {
		t.Fatalf("run() error = %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	addr, _ := startStub(t)
	if err := run([]string{"-addr", addr, "withdraw"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("run() error = nil, want unknown command")
	}
	if err := run([]string{"-addr", addr}, &bytes.Buffer{}); err == nil {
		t.Fatalf("run() error = nil, want command required")
	}
}
