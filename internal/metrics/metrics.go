package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPSeconds     *prometheus.HistogramVec
	StoreOperations *prometheus.CounterVec
	GeocodeRequests *prometheus.CounterVec
	APIErrors       prometheus.Counter
	RequestSeconds  *prometheus.HistogramVec
	TaskProcessed   *prometheus.CounterVec
	ActiveWorkers   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_http_requests_total",
			Help: "Total number of HTTP requests served by the marker API.",
		}, []string{"route", "method", "status"}),
		HTTPSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the marker API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		StoreOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_store_operations_total",
			Help: "Total number of marker store reads and writes.",
		}, []string{"operation", "status"}),
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_geocoding_requests_total",
			Help: "Total number of reverse geocoding lookups.",
		}, []string{"provider", "status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waypoint_geocoding_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		TaskProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_backfill_markers_processed_total",
			Help: "Total number of markers processed by the address backfill.",
		}, []string{"status"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_backfill_active_workers",
			Help: "Current number of backfill workers geocoding a marker.",
		}),
	}
}
