package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency   *prometheus.HistogramVec
	MatchResults      prometheus.Histogram
	GeoFallbacks      *prometheus.CounterVec
	FeedDeliveries    prometheus.Counter
	FeedSubscribers   prometheus.Gauge
	Broadcasts        *prometheus.CounterVec
	NotificationsSent prometheus.Counter
	PublishFailures   prometheus.Counter
}

// New registers the collectors with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodlink_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "code"}),
		MatchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_match_results",
			Help:    "Number of donors returned per match",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		GeoFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_geolocation_fallbacks_total",
			Help: "Requester locations resolved to the fallback coordinate, labeled by reason",
		}, []string{"reason"}),
		FeedDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_feed_deliveries_total",
			Help: "Match results pushed to websocket donor streams",
		}),
		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_feed_websocket_subscribers",
			Help: "Open websocket donor streams",
		}),
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_broadcasts_total",
			Help: "Emergency broadcasts, labeled by urgency",
		}, []string{"urgency"}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_total",
			Help: "Donor notifications stored by broadcasts",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_event_publish_failures_total",
			Help: "Events that failed to reach the broker",
		}),
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint, code string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint, code).Observe(durationSeconds)
}
