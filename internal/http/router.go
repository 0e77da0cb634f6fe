package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

// Readiness reports whether the backing store is reachable
type Readiness interface {
	Ready(ctx context.Context) error
}

// NewRouter wires up all HTTP routes, middleware, and handlers. When ws is
// non-nil the relay endpoint is mounted at /ws on the same mux.
func NewRouter(cfg app.Config, logger *slog.Logger, api *RoomsAPI, ready Readiness, ws http.Handler) http.Handler {
	mw := NewMiddleware(cfg, logger)

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	mux.Handle("GET /readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Ready(ctx); err != nil {
			logger.Warn("readyz", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	// Room endpoints (rate limited)
	mux.Handle("POST /api/rooms", mw.Wrap(http.HandlerFunc(api.Create)))
	mux.Handle("GET /api/rooms", mw.Wrap(http.HandlerFunc(api.List)))
	mux.Handle("DELETE /api/rooms/{roomId}", mw.Wrap(http.HandlerFunc(api.Delete)))
	mux.Handle("POST /api/rooms/{roomId}/token", mw.Wrap(http.HandlerFunc(api.Token)))
	mux.Handle("OPTIONS /api/", mw.Wrap(http.NotFoundHandler()))

	// WebSocket endpoint
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	return mux
}

// NewRelayRouter serves only the relay, for a dedicated WS listener
func NewRelayRouter(ws http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", ws)
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	return mux
}
