// Package server exposes the HTTP API: health, metrics, imported matches, chat
// views with filter toggles, and an SSE replay. It injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/match-chat/backend/config"
)

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	// Config is required.
	Config *config.Config
	// Store is required.
	Store Store
	// Importer is optional; without it the admin import route answers 503.
	Importer Importer
	// Views is optional; a store sized from Config is created when nil.
	Views *ViewStore
	// RateLimiter is optional; one is created from Config when nil.
	RateLimiter *IPRateLimiter
}

// NewRouter returns the HTTP handler with all routes. ctx bounds the rate
// limiter cleanup goroutine.
func NewRouter(ctx context.Context, rc RouterConfig) *chi.Mux {
	cfg := rc.Config
	views := rc.Views
	if views == nil {
		views = NewViewStore(cfg.ViewTTL, cfg.MaxViews)
	}
	limiter := rc.RateLimiter
	if limiter == nil {
		limiter = NewIPRateLimiter(ctx, rateLimitConfigFrom(cfg))
	}

	h := &Handlers{
		store:         rc.Store,
		importer:      rc.Importer,
		views:         views,
		importTimeout: cfg.ImportTimeout,
	}

	r := chi.NewRouter()
	r.Use(correlate)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.HandleHealthz)
	r.Get("/readyz", h.HandleReadyz)

	r.Get("/matches", h.HandleMatchesList)
	r.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/chat", h.HandleMatchChat)
		r.Get("/chat/replay", h.HandleChatReplay)
		r.Post("/views", h.HandleViewCreate)
	})

	r.Route("/views/{viewID}", func(r chi.Router) {
		r.Get("/", h.HandleViewGet)
		r.Delete("/", h.HandleViewDelete)
		r.Post("/toggle/{filter}", h.HandleViewToggle)
	})

	r.Route("/admin", func(r chi.Router) {
		// auth first, then rate limiting
		r.Use(adminAuth(newAuthConfig(cfg)))
		r.Use(limiter.Middleware)
		r.Post("/matches/{matchID}/import", h.HandleAdminImport)
	})

	return r
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, rc RouterConfig) error {
	if rc.Views == nil {
		rc.Views = NewViewStore(rc.Config.ViewTTL, rc.Config.MaxViews)
	}
	go rc.Views.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:        rc.Config.HTTPAddr,
		Handler:     NewRouter(ctx, rc),
		ReadTimeout: 5 * time.Second,
		// Replay streams stay open for the length of the match.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err), slog.String("component", "http"))
		}
	}()

	slog.Info("http server listening", slog.String("addr", srv.Addr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err), slog.String("component", "http"))
		return err
	}
	return nil
}
