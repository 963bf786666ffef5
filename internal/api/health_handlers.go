package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/logger"
)

// handleHealth is the liveness probe; it answers whenever the process runs.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe; it fails while the database is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			log.Warn("readiness check failed - database: %v", err)
			handleError(w, r, errors.NewUnavailableError("database unavailable", err))
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
