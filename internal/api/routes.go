package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.corsMiddleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.RateLimit > 0 {
			window := s.RateWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(s.RateLimit, window))
		}
		r.Use(jsonContentMiddleware)

		r.Route("/students", func(r chi.Router) {
			r.Get("/", s.handleListStudents)
			r.Post("/", s.handleCreateStudent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStudent)
				r.Put("/", s.handleUpdateStudent)
				r.Delete("/", s.handleDeleteStudent)
				r.Post("/sync", s.handleSyncStudent)
				r.Get("/contests", s.handleContests)
				r.Get("/rating-history", s.handleRatingHistory)
				r.Get("/submissions", s.handleSubmissions)
				r.Get("/problem-stats", s.handleProblemStats)
			})
		})

		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/run", s.handleSyncRun)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, notFoundRoute(r))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, methodNotAllowed(r))
	})
	return r
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}
