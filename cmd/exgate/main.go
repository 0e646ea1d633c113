package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"
	"github.com/yanun0323/logs"
	"google.golang.org/grpc"

	"exgate/internal/alert"
	"exgate/internal/config"
	"exgate/internal/exchange"
	"exgate/internal/exchange/binance"
	"exgate/internal/gateway"
	"exgate/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "config yaml path (environment only when empty)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		fatal(err.Error())
	}
}

func run(ctx context.Context, cfg config.Config) error {
	alerts := buildAlertManager(cfg)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := alerts.Close(closeCtx); err != nil {
			logs.Errorf("event=alert_close_failed err=%q", err.Error())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	meter := metrics.New(reg)

	client, err := binance.NewClient(cfg.Exchange, meter)
	if err != nil {
		return err
	}
	registry, err := exchange.NewRegistry(client)
	if err != nil {
		return err
	}
	whitelist, err := gateway.ParseWhitelist(cfg.Server.Whitelist)
	if err != nil {
		return err
	}
	svc := gateway.NewService(registry)
	if alerts != nil {
		svc.SetAlerter(alerts)
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		meter.UnaryServerInterceptor(),
		gateway.LoggingInterceptor(),
		whitelist.UnaryServerInterceptor(),
	))
	gateway.RegisterGatewayServer(server, svc)

	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.ListenAddr, err)
	}

	var lifecycle conc.WaitGroup
	serveErr := make(chan error, 2)
	lifecycle.Go(func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	})
	logs.Infof("event=gateway_started addr=%s exchanges=%v host=%s", lis.Addr(), registry.Names(), cfg.Exchange.RestBaseURL)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycle.Go(func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("metrics server: %w", err)
			}
		})
		logs.Infof("event=metrics_started addr=%s", cfg.Server.MetricsAddr)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logs.Infof("event=shutdown_requested")
	case runErr = <-serveErr:
		logs.Errorf("event=server_failed err=%q", runErr.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopGRPC(shutdownCtx, server)
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logs.Errorf("event=metrics_shutdown_failed err=%q", err.Error())
		}
	}
	lifecycle.Wait()
	logs.Infof("event=gateway_stopped")
	return runErr
}

// stopGRPC drains in-flight calls and falls back to a hard stop when ctx ends first.
func stopGRPC(ctx context.Context, server *grpc.Server) {
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logs.Errorf("event=grpc_graceful_stop_timeout")
		server.Stop()
		<-done
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func buildAlertManager(cfg config.Config) *alert.Manager {
	notifier := alert.NewTelegramNotifier(cfg.Observability.Telegram)
	if notifier == nil {
		return nil
	}
	instance, _ := os.Hostname()
	if instance == "" {
		instance = cfg.Server.ListenAddr
	}
	return alert.NewManagerWithOptions(instance, notifier, alert.ManagerOptions{
		DropReportInterval: time.Duration(cfg.Observability.AlertDropReportSec) * time.Second,
		Cooldown:           30 * time.Second,
	})
}
