package api

import (
	"net/http"
	"strconv"

	"github.com/vytor/cftracker/internal/logger"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }

// handleSyncStudent syncs one student now. With wait=true the result is
// returned; otherwise the sync is queued and 202 is returned.
func (s *Server) handleSyncStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	wait, err := queryBool(r, "wait")
	if err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.SyncService.SyncNow(r.Context(), id, wait)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !wait {
		logger.FromContext(r.Context()).Debug("sync queued for student %d", id)
		writeData(w, r, http.StatusAccepted, map[string]any{"student_id": id, "status": "queued"})
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, s.SyncService.Status(r.Context()))
}

// handleSyncRun starts a batch over stale students, or all of them with force=true.
func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		handleError(w, r, err)
		return
	}

	runID, err := s.SyncService.RunBatch(r.Context(), force)
	if err != nil {
		handleError(w, r, err)
		return
	}
	trigger := cfsync.TriggerManual
	if force {
		trigger = cfsync.TriggerForced
	}
	writeData(w, r, http.StatusAccepted, map[string]any{"run_id": runID, "trigger": trigger})
}
