// Package observe wires the server's OpenTelemetry meter to a Prometheus
// endpoint and exposes the counters the core records against.
package observe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics bundles every instrument the server records against. A nil
// *Metrics is tolerated by all call sites, so tests can run without one.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	connections    metric.Int64UpDownCounter
	messages       metric.Int64Counter
	messagesBad    metric.Int64Counter
	messagesDrop   metric.Int64Counter
	cheatRejects   metric.Int64Counter
	fragments      metric.Int64Counter
	fragmentsGold  metric.Int64Counter
	botsSpawned    metric.Int64Counter
	constellations metric.Int64Counter
	ticks          metric.Int64Counter
	tickDuration   metric.Float64Histogram
	broadcastBytes metric.Int64Counter
}

// New builds the meter provider with a Prometheus exporter.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("starfall")

	m := &Metrics{registry: registry, provider: provider}
	if m.connections, err = meter.Int64UpDownCounter("starfall_connections"); err != nil {
		return nil, err
	}
	if m.messages, err = meter.Int64Counter("starfall_messages_total"); err != nil {
		return nil, err
	}
	if m.messagesBad, err = meter.Int64Counter("starfall_messages_invalid_total"); err != nil {
		return nil, err
	}
	if m.messagesDrop, err = meter.Int64Counter("starfall_messages_dropped_total"); err != nil {
		return nil, err
	}
	if m.cheatRejects, err = meter.Int64Counter("starfall_cheat_rejects_total"); err != nil {
		return nil, err
	}
	if m.fragments, err = meter.Int64Counter("starfall_fragments_collected_total"); err != nil {
		return nil, err
	}
	if m.fragmentsGold, err = meter.Int64Counter("starfall_fragments_golden_total"); err != nil {
		return nil, err
	}
	if m.botsSpawned, err = meter.Int64Counter("starfall_bots_spawned_total"); err != nil {
		return nil, err
	}
	if m.constellations, err = meter.Int64Counter("starfall_constellations_total"); err != nil {
		return nil, err
	}
	if m.ticks, err = meter.Int64Counter("starfall_ticks_total"); err != nil {
		return nil, err
	}
	if m.tickDuration, err = meter.Float64Histogram("starfall_tick_duration_ms"); err != nil {
		return nil, err
	}
	if m.broadcastBytes, err = meter.Int64Counter("starfall_broadcast_bytes_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes the meter provider.
func (m *Metrics) Shutdown() {
	if m == nil {
		return
	}
	_ = m.provider.Shutdown(bgCtx())
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Add(bgCtx(), 1)
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Add(bgCtx(), -1)
	}
}

func (m *Metrics) MessageReceived() {
	if m != nil {
		m.messages.Add(bgCtx(), 1)
	}
}

func (m *Metrics) MessageInvalid() {
	if m != nil {
		m.messagesBad.Add(bgCtx(), 1)
	}
}

func (m *Metrics) MessageDropped() {
	if m != nil {
		m.messagesDrop.Add(bgCtx(), 1)
	}
}

func (m *Metrics) CheatRejected() {
	if m != nil {
		m.cheatRejects.Add(bgCtx(), 1)
	}
}

func (m *Metrics) FragmentCollected(golden bool) {
	if m == nil {
		return
	}
	m.fragments.Add(bgCtx(), 1)
	if golden {
		m.fragmentsGold.Add(bgCtx(), 1)
	}
}

func (m *Metrics) BotSpawned() {
	if m != nil {
		m.botsSpawned.Add(bgCtx(), 1)
	}
}

func (m *Metrics) ConstellationRewarded() {
	if m != nil {
		m.constellations.Add(bgCtx(), 1)
	}
}

func (m *Metrics) TickCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Add(bgCtx(), 1)
	m.tickDuration.Record(bgCtx(), float64(d.Microseconds())/1000)
}

func (m *Metrics) BroadcastBytes(n int) {
	if m != nil && n > 0 {
		m.broadcastBytes.Add(bgCtx(), int64(n))
	}
}

func bgCtx() context.Context { return context.Background() }
