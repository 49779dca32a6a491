package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexadmin_proxy_requests_total",
			Help: "Requests issued against the proxy endpoint",
		},
		[]string{"app", "outcome"}, // outcome: ok, status, transport, rejected
	)

	ProxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plexadmin_proxy_request_duration_seconds",
			Help:    "Latency of proxy requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"app"},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexadmin_proxy_circuit_state",
			Help: "Proxy circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	CollectionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexadmin_collection_lookups_total",
			Help: "Collection cache lookups",
		},
		[]string{"entity", "result"}, // hit, miss, shared, error
	)

	EnrichmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexadmin_enrichment_lookups_total",
			Help: "Episode availability lookups by outcome",
		},
		[]string{"outcome"}, // acquired, missing, error
	)

	SessionProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexadmin_session_probes_total",
			Help: "Auth probes against the proxy",
		},
		[]string{"result"},
	)

	UpdateClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexadmin_update_clients",
			Help: "Connected websocket clients receiving node updates",
		},
	)
)
