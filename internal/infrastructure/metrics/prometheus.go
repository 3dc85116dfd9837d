package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

var allStatuses = []entity.NetworkStatus{
	entity.NetworkStatusUnknown,
	entity.NetworkStatusAvailable,
	entity.NetworkStatusUnavailable,
	entity.NetworkStatusBlocked,
}

// PrometheusRecorder implements port.MetricsRecorder on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	switches *prometheus.CounterVec
	status   *prometheus.GaugeVec
	lookups  *prometheus.HistogramVec
	logger   *zap.Logger
}

var _ port.MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the controller metrics under namespace.
func NewPrometheusRecorder(namespace string, logger *zap.Logger) *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Attribution events emitted by the network controller",
			},
			[]string{"event", "category"},
		),
		switches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "network_switches_total",
				Help:      "Completed network switches by network type",
			},
			[]string{"type"},
		),
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "network_status",
				Help:      "1 for the current network status, 0 otherwise",
			},
			[]string{"status"},
		),
		lookups: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Duration of committed network lookups by resulting status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		logger: logger.Named("Metrics"),
	}

	r.registry.MustRegister(r.events, r.switches, r.status, r.lookups)
	r.SetNetworkStatus(entity.NetworkStatusUnknown)
	return r
}

// TrackEvent implements port.MetricsRecorder.
func (r *PrometheusRecorder) TrackEvent(event entity.MetricsEvent) {
	r.events.With(prometheus.Labels{"event": event.Event, "category": event.Category}).Inc()
	r.logger.Info("Event tracked",
		zap.String("event", event.Event),
		zap.String("category", event.Category),
		zap.String("referrer", event.Referrer),
		zap.Any("properties", event.Properties),
	)
}

// IncNetworkSwitch implements port.MetricsRecorder.
func (r *PrometheusRecorder) IncNetworkSwitch(networkType entity.NetworkType) {
	r.switches.With(prometheus.Labels{"type": string(networkType)}).Inc()
}

// SetNetworkStatus implements port.MetricsRecorder.
func (r *PrometheusRecorder) SetNetworkStatus(status entity.NetworkStatus) {
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		r.status.With(prometheus.Labels{"status": string(s)}).Set(v)
	}
}

// ObserveLookup implements port.MetricsRecorder.
func (r *PrometheusRecorder) ObserveLookup(status entity.NetworkStatus, d time.Duration) {
	r.lookups.With(prometheus.Labels{"status": string(status)}).Observe(d.Seconds())
}

// Handler serves the recorder's registry in the prometheus text format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
