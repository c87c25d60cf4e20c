package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_dashboard_backend_request_duration_seconds",
			Help:    "Backend API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	BackendRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_dashboard_backend_requests_total",
			Help: "Total backend API calls by outcome",
		},
		[]string{"endpoint", "status"},
	)

	FetchPages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_dashboard_fetch_pages",
			Help:    "Pages requested per query-log fetch sequence",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	FetchTruncated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_dashboard_fetch_truncated_total",
			Help: "Fetch sequences that returned a truncated working set",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_dashboard_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_dashboard_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SectionLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_dashboard_section_loads_total",
			Help: "Dashboard section loads by outcome",
		},
		[]string{"section", "outcome"},
	)
)

func Register() {
	prometheus.MustRegister(
		BackendRequestDuration,
		BackendRequestTotal,
		FetchPages,
		FetchTruncated,
		CacheHits,
		CacheMisses,
		SectionLoads,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
