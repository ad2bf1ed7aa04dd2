package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Settlement metrics
	SettlementsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mahjong_settlements_computed_total",
		Help: "Total number of full settlement recomputations",
	})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mahjong_settlement_duration_seconds",
		Help:    "Settlement recomputation duration in seconds",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	UnconfirmedSettlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mahjong_settlements_unconfirmed_total",
		Help: "Settlements computed while at least one round was unconfirmed",
	})

	// Session metrics
	CommandsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mahjong_commands_total",
			Help: "Session commands by type and outcome",
		},
		[]string{"type", "status"},
	)

	RepositoryConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mahjong_repository_conflicts_total",
		Help: "Saves rejected because the stored version moved on",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mahjong_active_sessions",
		Help: "Session actors currently loaded in the hub",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mahjong_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mahjong_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Realtime metrics
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mahjong_ws_clients",
		Help: "Connected websocket subscribers",
	})
)
