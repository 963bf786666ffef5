package api

import (
	"net/http"
)

const (
	maxDays                = 3650
	defaultStatsDays       = 30
	defaultSubmissionLimit = 100
	maxSubmissionLimit     = 1000
)

func (s *Server) handleContests(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0, 0, maxDays)
	if err != nil {
		handleError(w, r, err)
		return
	}

	contests, err := s.ProgressService.Contests(r.Context(), id, days)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, contests)
}

func (s *Server) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0, 0, maxDays)
	if err != nil {
		handleError(w, r, err)
		return
	}

	history, err := s.ProgressService.RatingHistory(r.Context(), id, days)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, history)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0, 0, maxDays)
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultSubmissionLimit, 1, maxSubmissionLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	subs, err := s.ProgressService.Submissions(r.Context(), id, days, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, subs)
}

func (s *Server) handleProblemStats(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	// days=0 asks for the whole history.
	days, err := queryInt(r, "days", defaultStatsDays, 0, maxDays)
	if err != nil {
		handleError(w, r, err)
		return
	}

	stats, err := s.ProgressService.ProblemStats(r.Context(), id, days)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, stats)
}
