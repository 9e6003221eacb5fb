package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/citylaw/docket/internal/api/v1"
	"github.com/citylaw/docket/internal/api/ws"
	"github.com/citylaw/docket/internal/config"
)

// Pinger is a dependency probed by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer is wired to.
type Deps struct {
	Store  v1.DataStore
	Tasks  v1.TaskService
	Auth   v1.AuthService
	SSO    v1.SSOService // nil when no provider is configured
	PubSub ws.Subscriber
	Checks map[string]Pinger
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	// Must precede every huma registration.
	v1.ConfigureErrors()

	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	router.Route("/api/v1", func(r chi.Router) {
		mountAPI(ctx, r, cfg, deps)
	})

	router.Route("/ws", func(r chi.Router) {
		mountWS(r, cfg, deps, ws.NewHub(deps.PubSub, originHosts(cfg.Server.CORSOrigins)...))
	})

	// Health check (unauthenticated).
	router.Get("/healthz", healthHandler(deps.Checks))

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := healthBody{Status: "ok"}
		status := http.StatusOK
		for name, p := range checks {
			if body.Checks == nil {
				body.Checks = make(map[string]string, len(checks))
			}
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("health check failed")
				body.Checks[name] = "unavailable"
				body.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// originHosts turns CORS origins into the host patterns the WebSocket
// handshake checks.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
