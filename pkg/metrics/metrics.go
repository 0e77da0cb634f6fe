package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "live_rooms"

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "Open relay connections.",
	})
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_rooms_active",
		Help:      "Rooms with at least one attached connection.",
	})
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_messages_relayed_total",
		Help:      "Inbound messages handed to the broadcast relay.",
	})
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_deliveries_total",
		Help:      "Per-recipient delivery attempts by result.",
	}, []string{"result"})
	RoomOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "room_ops_total",
		Help:      "Room lifecycle operations by op and result.",
	}, []string{"op", "result"})
	TokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_requests_total",
		Help:      "Token issuance requests by result.",
	}, []string{"result"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
