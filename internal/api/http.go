// Package api maps the core operations onto a chi HTTP router. It is
// boundary code: the core packages never import it. Caller identity arrives
// in the X-Player-ID header; real authentication lives in front of this
// service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blockfall/blockfall/internal/log"
	"github.com/blockfall/blockfall/internal/service"
)

// PlayerHeader carries the caller's player id on every request.
const PlayerHeader = "X-Player-ID"

// Server serves the HTTP API over one Service.
type Server struct {
	svc    *service.Service
	router chi.Router
}

// Options tunes the router.
type Options struct {
	Metrics   bool // expose /metrics
	RateLimit int  // requests per minute per IP, 0 disables
}

// NewServer builds the router around svc.
func NewServer(svc *service.Service, opts Options) *Server {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log.WithComponent("api")))
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Post("/segments", s.handleAppendSegment)
			r.Get("/segments", s.handleGetSegments)
			r.Get("/state", s.handleGetState)
			r.Get("/meta", s.handleGetMeta)
		})
		r.Get("/boards", s.handleListBoards)
		r.Get("/boards/{name}", s.handleGetBoard)
		r.Put("/boards/{name}", s.handleSaveBoard)
		r.Post("/matchmaking/join", s.handleFindMatch)
		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Get("/players/{id}/profile", s.handleGetProfile)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
