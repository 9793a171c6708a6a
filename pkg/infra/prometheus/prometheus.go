package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	ProviderCallsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapstyle_provider_calls_total",
			Help: "Outbound shopping-search provider calls by outcome",
		},
		[]string{"outcome"}, // ok, error, throttled, budget_exhausted
	)

	SearchCacheTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapstyle_search_cache_total",
			Help: "Search result cache lookups by result",
		},
		[]string{"cache", "result"}, // cache: search|sections, result: hit|miss
	)

	IngressRejectedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapstyle_ingress_rejected_total",
			Help: "Requests rejected by the ingress rate limiter",
		},
		[]string{"route_group"},
	)

	QuotaRemaining = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "snapstyle_quota_remaining",
			Help: "Remaining shopping-provider calls for the current day",
		},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapstyle_request_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"method", "status"},
	)
)

// Handler exposes the private registry for the metrics side server.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
