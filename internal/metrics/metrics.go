// Package metrics expone los contadores del scanner en formato Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "polyarb"

// Metrics agrupa todos los colectores. Cada instancia tiene su propio registry.
type Metrics struct {
	reg *prometheus.Registry

	Detections         *prometheus.CounterVec   // kind
	BestProfit         *prometheus.GaugeVec     // kind
	PriceEvents        *prometheus.CounterVec   // source: book|delta
	EvaluationSeconds  *prometheus.HistogramVec // trigger: event|scan
	TrackedMarkets     prometheus.Gauge
	CrossMarkets       prometheus.Gauge
	PrunedPrices       prometheus.Counter
	ReferenceLoads     *prometheus.CounterVec // result: ok|unavailable|error
	NotificationsSent  *prometheus.CounterVec // kind
	NotificationErrors prometheus.Counter
	DroppedEvents      prometheus.Counter
	StreamReconnects   prometheus.Counter
}

// New crea y registra los colectores.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_detected_total",
			Help:      "Opportunities detected, by kind (BUY_BOTH, SELL_BOTH, CROSS).",
		}, []string{"kind"}),
		BestProfit: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_profit_per_share",
			Help:      "Best profit per share seen in the last full scan, by kind.",
		}, []string{"kind"}),
		PriceEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_events_total",
			Help:      "Price events applied to the cache, by source.",
		}, []string{"source"}),
		EvaluationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Detector evaluation latency.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"trigger"}),
		TrackedMarkets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_markets",
			Help:      "Markets currently registered.",
		}),
		CrossMarkets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cross_markets",
			Help:      "Registered markets with parsed up/down metadata.",
		}),
		PrunedPrices: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_prices_total",
			Help:      "Stale token prices removed from the cache.",
		}),
		ReferenceLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_fetches_total",
			Help:      "Reference price fetches, by result.",
		}, []string{"result"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered, by kind.",
		}, []string{"kind"}),
		NotificationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Notifier calls that returned an error.",
		}),
		DroppedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatcher_dropped_total",
			Help:      "Opportunities dropped because the dispatch queue was full.",
		}),
		StreamReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Websocket reconnections after a dropped session.",
		}),
	}
}

// Registry devuelve el registry subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler sirve /metrics para este registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
