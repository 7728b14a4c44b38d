// Package observability exposes the hub's operational counters to
// Prometheus and samples process stats for the telemetry worker.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ConnectionsOpen   *prometheus.GaugeVec
	CustomersOnline   prometheus.Gauge
	HubQueueDepth     prometheus.Gauge
	MessagesRelayed   prometheus.Counter
	MessagesDelivered prometheus.Counter
	PersistFailures   prometheus.Counter
	InvalidMessages   prometheus.Counter
	SessionsEnded     prometheus.Counter
	MessagesPurged    prometheus.Counter
	TypingEvents      prometheus.Counter
	RateLimited       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "support_chat",
			Name:      "connections_open",
			Help:      "Open websocket connections by participant role.",
		}, []string{"role"}),
		CustomersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "support_chat",
			Name:      "customers_online",
			Help:      "Customers with at least one open connection.",
		}),
		HubQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "support_chat",
			Name:      "hub_queue_depth",
			Help:      "Requests waiting in the hub queue.",
		}),
		MessagesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "messages_relayed_total",
			Help:      "Messages accepted and persisted by the relay.",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "messages_delivered_total",
			Help:      "Messages delivered live to at least one recipient connection.",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "persist_failures_total",
			Help:      "Store errors surfaced back to senders.",
		}),
		InvalidMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "invalid_messages_total",
			Help:      "Messages rejected before any store call.",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "sessions_ended_total",
			Help:      "Successful administrative session terminations.",
		}),
		MessagesPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "messages_purged_total",
			Help:      "Messages removed by session terminations.",
		}),
		TypingEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "typing_events_total",
			Help:      "Typing indicator updates routed through the hub.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "rate_limited_total",
			Help:      "Inbound frames rejected by the per-participant limiter.",
		}),
	}
}
