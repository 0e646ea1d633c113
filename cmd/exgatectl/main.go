package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"google.golang.org/grpc/status"

	"exgate/internal/exchange/binance"
	"exgate/internal/gateway"
)

const usage = `usage: exgatectl [flags] <command> [args]

commands:
  balances                                   list account balances
  prices [SYMBOL...]                         latest prices, all symbols when none given
  order -symbol S -client-order-id ID        query one order
  market -symbol S -side BUY|SELL -quantity Q [-client-order-id ID]
                                             place a market order
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("exgatectl", flag.ContinueOnError)
	var (
		addr       string
		exchange   string
		timeoutSec int
	)
	fs.StringVar(&addr, "addr", "127.0.0.1:3000", "gateway address")
	fs.StringVar(&exchange, "exchange", binance.Name, "exchange name")
	fs.IntVar(&timeoutSec, "timeout-sec", 10, "call timeout seconds")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("command required")
	}
	if timeoutSec < 1 {
		timeoutSec = 1
	}

	client, err := gateway.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	reply, err := call(ctx, client, exchange, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return fmt.Errorf("%s: %s", st.Code(), st.Message())
		}
		return err
	}
	data, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func call(ctx context.Context, client *gateway.Client, exchange, command string, args []string) (any, error) {
	switch command {
	case "balances":
		return client.GetBalances(ctx, &gateway.BalancesRequest{ExchangeName: exchange})
	case "prices":
		symbols := make([]string, 0, len(args))
		for _, s := range args {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		return client.GetPrices(ctx, &gateway.PriceRequest{ExchangeName: exchange, Symbols: symbols})
	case "order":
		fs := flag.NewFlagSet("order", flag.ContinueOnError)
		symbol := fs.String("symbol", "", "symbol, e.g. BTCUSDT")
		clientID := fs.String("client-order-id", "", "client order id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return client.GetOrder(ctx, &gateway.OrderRequest{
			ExchangeName:  exchange,
			Symbol:        *symbol,
			ClientOrderID: *clientID,
		})
	case "market":
		fs := flag.NewFlagSet("market", flag.ContinueOnError)
		symbol := fs.String("symbol", "", "symbol, e.g. BTCUSDT")
		side := fs.String("side", "", "BUY or SELL")
		quantity := fs.String("quantity", "", "base asset quantity")
		clientID := fs.String("client-order-id", "", "client order id, generated by the gateway when empty")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return client.CreateMarketOrder(ctx, &gateway.CreateMarketOrderRequest{
			ExchangeName:  exchange,
			Symbol:        *symbol,
			Side:          *side,
			Quantity:      *quantity,
			ClientOrderID: *clientID,
		})
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}
