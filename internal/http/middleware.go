package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
	log    *slog.Logger
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config, logger *slog.Logger) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllow,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		rlimit: ratelimit.New(cfg.RateLimit, time.Minute),
		log:    logger,
	}
}

// Wrap applies CORS + rate limiting + access logging to a handler
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(m.rlimit.Middleware(m.access(h)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// access logs one line per control-plane request
func (m *Middleware) access(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.log.Debug("http.request",
			"method", r.Method, "path", r.URL.Path,
			"status", rec.status, "dur", time.Since(start))
	})
}
