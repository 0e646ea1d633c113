// Package metrics exposes Prometheus instruments for gateway RPCs and the
// upstream exchange calls they fan out to.
package metrics

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"exgate/internal/core"
)

const outcomeOK = "ok"

// Metrics records per-method RPC counts and latency plus per-endpoint upstream outcomes.
type Metrics struct {
	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New registers the instruments against reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exgate",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total number of gateway RPCs by method and status code.",
			},
			[]string{"method", "code"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "exgate",
				Subsystem: "rpc",
				Name:      "duration_seconds",
				Help:      "Histogram of gateway RPC handling durations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exgate",
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Total number of exchange REST calls by endpoint and outcome.",
			},
			[]string{"exchange", "endpoint", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "exgate",
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Histogram of exchange REST call durations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"exchange", "endpoint"},
		),
	}
	reg.MustRegister(m.rpcRequests, m.rpcDuration, m.upstreamRequests, m.upstreamDuration)
	return m
}

// UnaryServerInterceptor counts every RPC, including ones rejected by
// interceptors that run after it.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.ObserveRPC(path.Base(info.FullMethod), err, time.Since(start))
		return resp, err
	}
}

func (m *Metrics) ObserveRPC(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, status.Code(err).String()).Inc()
	if elapsed >= 0 {
		m.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}

// ObserveUpstream satisfies exchange.Observer.
func (m *Metrics) ObserveUpstream(exchange, endpoint string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(exchange, endpoint, Outcome(err)).Inc()
	if elapsed >= 0 {
		m.upstreamDuration.WithLabelValues(exchange, endpoint).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) RPCCounter(method, code string) prometheus.Counter {
	return m.rpcRequests.WithLabelValues(method, code)
}

func (m *Metrics) UpstreamCounter(exchange, endpoint, outcome string) prometheus.Counter {
	return m.upstreamRequests.WithLabelValues(exchange, endpoint, outcome)
}

// Outcome is "ok" for nil and the taxonomy kind name otherwise.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	return core.KindOf(err).String()
}

// Handler serves the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
