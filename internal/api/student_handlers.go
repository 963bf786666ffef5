package api

import (
	"net/http"
	"strings"

	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	page, err := queryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		handleError(w, r, err)
		return
	}

	q := r.URL.Query()
	sort := q.Get("sort")
	if sort == "" {
		sort = "created_at"
	}
	if !models.StudentSortColumns[sort] {
		handleError(w, r, errors.NewValidationError("sort", "unsupported sort column: "+sort))
		return
	}
	order := strings.ToUpper(q.Get("order"))
	if order == "" {
		order = "ASC"
	}
	if order != "ASC" && order != "DESC" {
		handleError(w, r, errors.NewValidationError("order", "must be asc or desc"))
		return
	}

	filter := models.StudentFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
		OrderBy:  sort,
		OrderDir: order,
	}
	if raw := q.Get("sync_enabled"); raw != "" {
		enabled, err := queryBool(r, "sync_enabled")
		if err != nil {
			handleError(w, r, err)
			return
		}
		filter.SyncEnabled = &enabled
	}

	log.Debug("listing students: page=%d limit=%d sort=%s %s", page, limit, sort, order)
	students, total, err := s.StudentService.ListStudents(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writePage(w, r, students, models.NewPagination(page, limit, total))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, r, err)
		return
	}

	student, err := s.StudentService.CreateStudent(r.Context(), req.input())
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/students/"+itoa64(student.ID))
	writeData(w, r, http.StatusCreated, student)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	student, err := s.StudentService.GetStudent(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, student)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, r, err)
		return
	}

	student, err := s.StudentService.UpdateStudent(r.Context(), id, req.input())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudentService.DeleteStudent(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
