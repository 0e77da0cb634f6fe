package ws

import (
	"log/slog"

	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

// Relay fans a sender's frames out to the rest of its room. Frames are
// opaque; delivery is best-effort and per-recipient failures stay local.
type Relay struct {
	rooms *RoomRegistry
	log   *slog.Logger
}

func NewRelay(rooms *RoomRegistry, log *slog.Logger) *Relay {
	return &Relay{rooms: rooms, log: log}
}

// Relay enqueues f on every other member of from's room and returns how
// many recipients accepted it. A connection with no room has no audience,
// and one that is no longer OPEN may not send.
func (r *Relay) Relay(from *Conn, f Frame) int {
	metrics.MessagesRelayed.Inc()

	roomID := from.RoomID()
	if roomID == "" || from.State() != StateOpen {
		return 0
	}

	delivered := 0
	for _, to := range r.rooms.Audience(roomID, from) {
		if err := to.Send(f); err != nil {
			metrics.Deliveries.WithLabelValues(dropReason(err)).Inc()
			r.log.Debug("relay.drop", "room", roomID, "from", from.ID(), "to", to.ID(), "err", err)
			continue
		}
		metrics.Deliveries.WithLabelValues("sent").Inc()
		delivered++
	}
	return delivered
}

func dropReason(err error) string {
	switch err {
	case ErrSendQueueFull:
		return "queue_full"
	case ErrConnectionClosed:
		return "closed"
	}
	return "error"
}
