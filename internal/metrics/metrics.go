// Package metrics exposes Prometheus instrumentation for the deposit service.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/tenancydeposit/internal/events"
	"github.com/mmynk/tenancydeposit/internal/models"
)

const namespace = "tenancydeposit"

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	events    *prometheus.CounterVec
	custody   prometheus.Gauge
}

// New creates the collectors and registers them together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC calls segmented by procedure and result code.",
		}, []string{"procedure", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of RPC handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_delivered_total",
			Help:      "Lifecycle events delivered from the outbox, by type.",
		}, []string{"type"}),
		custody: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "custody_ether",
			Help:      "Deposits currently held in escrow, in ether.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.durations,
		m.events,
		m.custody,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Interceptor records a count and latency for every unary call.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			if procedure == "" {
				procedure = "unknown"
			}

			resp, err := next(ctx, req)

			m.requests.WithLabelValues(procedure, codeOf(err)).Inc()
			m.durations.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}

// CustodyFunc reports the amount currently held in escrow.
type CustodyFunc func(ctx context.Context) (models.Amount, error)

// EventObserver counts delivered events and refreshes the custody gauge.
// A custody read failure leaves the event pending.
func (m *Metrics) EventObserver(custody CustodyFunc) events.Observer {
	return events.ObserverFunc(func(ctx context.Context, e *models.Event) error {
		if custody != nil {
			total, err := custody(ctx)
			if err != nil {
				return err
			}
			if err := m.SetCustody(total); err != nil {
				return err
			}
		}
		m.events.WithLabelValues(string(e.Type)).Inc()
		return nil
	})
}

// SetCustody publishes total on the custody gauge.
func (m *Metrics) SetCustody(total models.Amount) error {
	v, err := strconv.ParseFloat(total.Ether(), 64)
	if err != nil {
		return err
	}
	m.custody.Set(v)
	return nil
}
