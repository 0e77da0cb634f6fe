package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	app "github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
	httpx "github.com/keerthanachowdary21/Live-Video-Calls/internal/http"
	rooms "github.com/keerthanachowdary21/Live-Video-Calls/internal/rooms"
	store "github.com/keerthanachowdary21/Live-Video-Calls/internal/store"
	token "github.com/keerthanachowdary21/Live-Video-Calls/internal/token"
	ws "github.com/keerthanachowdary21/Live-Video-Calls/internal/ws"
	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/auth"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Durable room store (+ migrations for postgres)
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("store.open", "driver", cfg.StoreDriver, "err", err)
		log.Fatal(err)
	}
	defer st.Close()

	// Relay hub; the coordinator is created first so its hooks can reach the hub
	var hub *ws.Hub
	roomOpts := []rooms.Option{rooms.WithCreateHook(func(id string) { hub.Touch(id) })}
	if cfg.EvictOnDelete {
		roomOpts = append(roomOpts, rooms.WithDeleteHook(func(id string) { hub.Evict(id) }))
	}
	roomSvc := rooms.NewService(st, logger, roomOpts...)
	hub = ws.NewHub(logger, roomSvc, ws.Options{
		SendQueue:    cfg.WSSendQueue,
		ReadLimit:    int64(cfg.WSReadLimit),
		PingInterval: cfg.WSPingInterval,
		RequireRoom:  cfg.WSRequireRoom,
		SyncInterval: cfg.ParticipantSync,
	})

	// Token gateway
	provider := token.NewHTTPProvider(cfg.TokenURL, providerAuth(cfg, logger), &http.Client{Timeout: cfg.ProviderTimeout})
	gateway := token.NewGateway(roomSvc, provider, logger, cfg.TokenRole, cfg.TokenTTL)

	// HTTP router; the relay shares it unless WS_ADDR is set
	api := &httpx.RoomsAPI{Rooms: roomSvc, Tokens: gateway, Log: logger}
	relay := http.HandlerFunc(hub.ServeWS)
	servers := []*http.Server{}
	if cfg.WSAddr == "" {
		servers = append(servers, newServer(cfg.HTTPAddr, httpx.NewRouter(cfg, logger, api, roomSvc, relay)))
	} else {
		servers = append(servers,
			newServer(cfg.HTTPAddr, httpx.NewRouter(cfg, logger, api, roomSvc, nil)),
			newServer(cfg.WSAddr, httpx.NewRelayRouter(relay)),
		)
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(runCtx)
		return nil
	})
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("server.listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server.crash", "addr", srv.Addr, "err", err)
				return err
			}
			return nil
		})
	}

	// Wait for shutdown signal or a listener failure
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server.shutdown.start")

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		logger.Info("ws.drain", "conns", hub.Drain())
		if err := hub.Wait(shutdownCtx); err != nil {
			logger.Warn("ws.drain.timeout", "err", err)
		}
		stopRun()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server.exit", "err", err)
	}
	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// providerAuth prefers minting management tokens when an access key and
// secret are configured, falling back to a static API key
func providerAuth(cfg app.Config, logger *slog.Logger) token.Authorizer {
	if cfg.HMSAccessKey != "" && cfg.HMSSecret != "" {
		return token.NewManagementKey(auth.New(cfg.HMSAccessKey, cfg.HMSSecret), 24*time.Hour)
	}
	if cfg.HMSAPIKey == "" {
		logger.Warn("token.provider.unconfigured", "note", "set HMS_API_KEY or HMS_ACCESS_KEY/HMS_SECRET")
	}
	return token.StaticKey(cfg.HMSAPIKey)
}
