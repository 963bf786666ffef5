package api

import (
	"fmt"
	"net/http"

	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, map[string]any{
		"error": errorBody{Code: appErr.Code, Message: appErr.Message},
	})
}

func notFoundRoute(r *http.Request) error {
	return &errors.AppError{
		Code:    errors.ErrCodeNotFound,
		Message: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		Status:  http.StatusNotFound,
	}
}

func methodNotAllowed(r *http.Request) error {
	return &errors.AppError{
		Code:    errors.ErrCodeBadRequest,
		Message: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		Status:  http.StatusMethodNotAllowed,
	}
}
