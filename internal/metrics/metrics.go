// Package metrics holds the bot's Prometheus metrics. The bot runs as a
// batch job, so metrics live in a private registry and are pushed to a
// Pushgateway at the end of each cycle.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"signalbot/internal/model"
)

// JobName is the Pushgateway job label.
const JobName = "signalbot"

// Metrics holds all Prometheus metrics for one bot process.
type Metrics struct {
	Registry *prometheus.Registry

	ProviderAttempts *prometheus.CounterVec // labels: provider, tf, result=ok|error
	SymbolSkips      *prometheus.CounterVec // labels: reason
	Decisions        *prometheus.CounterVec // labels: kind
	FrameFallbacks   prometheus.Counter
	NotifyFailures   *prometheus.CounterVec // labels: kind

	CycleDuration prometheus.Gauge
	LastSuccess   prometheus.Gauge // unix seconds of the last completed cycle

	// Backend liveness, adapted from the probe pattern: 1 = reachable.
	BackendUp      *prometheus.GaugeVec // labels: backend
	BackendLatency *prometheus.GaugeVec // labels: backend
}

// NewMetrics creates and registers all metrics in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_provider_attempts_total",
			Help: "Provider fetch attempts by provider, timeframe and result",
		}, []string{"provider", "tf", "result"}),
		SymbolSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_symbol_skips_total",
			Help: "Symbols skipped in a cycle, by reason",
		}, []string{"reason"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_decisions_total",
			Help: "Evaluated decisions by kind",
		}, []string{"kind"}),
		FrameFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_frame_fallbacks_total",
			Help: "Evaluations that fell back from 4h to 1h",
		}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_notify_failures_total",
			Help: "Alerts that could not be delivered, by message kind",
		}, []string{"kind"}),

		CycleDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_cycle_duration_seconds",
			Help: "Wall time of the last cycle",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that saved its state",
		}),

		BackendUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_backend_up",
			Help: "State backend reachability (1=up, 0=down)",
		}, []string{"backend"}),
		BackendLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_backend_latency_seconds",
			Help: "State backend probe latency",
		}, []string{"backend"}),
	}

	m.Registry.MustRegister(
		m.ProviderAttempts,
		m.SymbolSkips,
		m.Decisions,
		m.FrameFallbacks,
		m.NotifyFailures,
		m.CycleDuration,
		m.LastSuccess,
		m.BackendUp,
		m.BackendLatency,
	)

	return m
}

// ObserveAttempt matches the provider rotator's attempt hook.
func (m *Metrics) ObserveAttempt(provider string, tf model.Timeframe, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ProviderAttempts.WithLabelValues(provider, tf.String(), result).Inc()
}

// ObserveFallback matches the resampler's fallback hook.
func (m *Metrics) ObserveFallback(fine, coarse model.Timeframe) {
	m.FrameFallbacks.Inc()
}

// CheckBackend runs ping and records reachability and latency.
func (m *Metrics) CheckBackend(ctx context.Context, backend string, ping func(context.Context) error) error {
	start := time.Now()
	err := ping(ctx)
	m.BackendLatency.WithLabelValues(backend).Set(time.Since(start).Seconds())
	if err != nil {
		m.BackendUp.WithLabelValues(backend).Set(0)
		return err
	}
	m.BackendUp.WithLabelValues(backend).Set(1)
	return nil
}

// Pusher sends the registry to a Pushgateway.
type Pusher struct {
	url        string
	maxRetries uint64
	interval   time.Duration
}

// NewPusher creates a pusher for the gateway at url.
func NewPusher(url string) *Pusher {
	return &Pusher{url: url, maxRetries: 2, interval: 500 * time.Millisecond}
}

// Push replaces this job's metric group on the gateway, retrying transient
// failures.
func (p *Pusher) Push(ctx context.Context, m *Metrics) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.interval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.maxRetries), ctx)

	err := backoff.Retry(func() error {
		return push.New(p.url, JobName).Gatherer(m.Registry).PushContext(ctx)
	}, b)
	if err != nil {
		return fmt.Errorf("pushgateway %s: %w", p.url, err)
	}
	return nil
}
