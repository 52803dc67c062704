// Package server wires the HTTP surface consumed by agent front-ends.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	v1 "github.com/cptapp/cpt/internal/api/v1"
	"github.com/cptapp/cpt/internal/api/ws"
	"github.com/cptapp/cpt/internal/config"
	"github.com/cptapp/cpt/internal/notify"
	"github.com/cptapp/cpt/internal/server/middleware"
)

// Server is the HTTP server exposing the task engine.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	engine     v1.Engine
	cfg        *config.Config
}

// New creates a Server with all routes wired. broadcaster may be nil;
// the WebSocket change stream is only mounted when it is configured.
func New(ctx context.Context, cfg *config.Config, engine v1.Engine, broadcaster *notify.Broadcaster) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		engine: engine,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Server.APIKey))
		r.Use(middleware.RateLimitByIP(ctx, 50, 100))

		apiConfig := huma.DefaultConfig("cpt API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		v1.RegisterTaskRoutes(api, engine)
		v1.RegisterProjectRoutes(api, engine)
		v1.RegisterChangeRoutes(api, engine)
	})

	if broadcaster != nil {
		hub := ws.NewHub(broadcaster)
		router.Route("/ws", func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.Server.APIKey))
			r.Get("/changes", hub.ServeChanges)
		})
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
