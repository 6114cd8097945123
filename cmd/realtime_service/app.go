package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-realtime/internal/general/config"
	"ride-realtime/internal/general/jwt"
	"ride-realtime/internal/general/logger"
	"ride-realtime/internal/realtime/handler"
	"ride-realtime/internal/realtime/hub"
	"ride-realtime/internal/realtime/ws"

	"github.com/gorilla/mux"
)

// Run starts the realtime service and blocks until the context is canceled
// or the HTTP server fails.
func Run(ctx context.Context, cfgPath string, maxConcurrent int) error {
	// set up a logger for the realtime service with a static request ID for startup logs
	log := logger.New("realtime-service")
	ctx = log.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load config", err, nil)
		return err
	}

	// hub state objects are constructor-injected so tests can build isolated hubs
	registry := hub.NewConnectionRegistry()
	rooms := hub.NewRoomIndex()
	locations := hub.NewLocationTable()
	h := hub.New(log, registry, rooms, locations,
		hub.WithStaleAfter(cfg.Realtime.StaleAfter()),
		hub.WithReapEvery(cfg.Realtime.ReapEvery()),
	)

	// start the staleness reaper
	go h.Run(ctx)

	// transport server and JWT manager for the admin HTTP surface
	wsrv := ws.NewServer(log, h, cfg.Realtime.PingInterval())
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// mount routes; the limiter covers only the request/response API surface.
	// A WebSocket handler call lasts as long as the connection, so /ws is
	// routed around it.
	router := mux.NewRouter()
	httpHandler := handler.NewRealtimeHTTPHandler(h, log, jwtManager)
	httpHandler.RegisterRoutes(router)

	root := http.NewServeMux()
	root.HandleFunc("/ws", wsrv.HandleWS)
	root.Handle("/", withConcurrencyLimit(maxConcurrent, router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Realtime.Port),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Realtime service started on port %d", cfg.Realtime.Port),
		map[string]any{"port": cfg.Realtime.Port, "max_concurrent": maxConcurrent},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err,
				map[string]any{"port": cfg.Realtime.Port})
			return err
		}
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
