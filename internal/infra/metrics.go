package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько занял один исходящий вызов провайдера
	ProviderRequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во исходящих вызовов
	ProviderRequests *prometheus.CounterVec

	// Errors: классификация отказов (transport, http_status, not_configured)
	ProviderErrors *prometheus.CounterVec

	// Cache: попадания/промахи TTL-кэша
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		ProviderRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "runnerdeck_provider_request_duration_seconds",
			Help:    "Histogram of outbound provider call latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"provider", "status"}),

		ProviderRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "runnerdeck_provider_requests_total",
			Help: "Total number of outbound provider calls.",
		}, []string{"provider"}),

		ProviderErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "runnerdeck_provider_errors_total",
			Help: "Total number of failed provider calls by type.",
		}, []string{"provider", "type"}), // типы: transport, http_status, not_configured

		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "runnerdeck_cache_hits_total",
			Help: "Total number of TTL cache hits.",
		}),

		CacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "runnerdeck_cache_misses_total",
			Help: "Total number of TTL cache misses (including expiries).",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "runnerdeck_circuit_breaker_state",
			Help: "Current state of the per-provider circuit breaker (0=closed, 1=open).",
		}, []string{"provider"}),
	}
}
