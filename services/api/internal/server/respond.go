package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"elib/internal/util"
	"elib/services/api/internal/app"
)

type errorResponse struct {
	Status     string   `json:"status"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	ErrorStack []string `json:"errorStack,omitempty"`
	RequestID  string   `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Status:     "error",
		StatusCode: status,
		Message:    msg,
		RequestID:  util.RequestIDFromRequest(r),
	})
}

// writeAppError is the single responder mapping error kinds to statuses.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := "Internal Server Error"
	var appErr *app.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("request_failed", "status", status, "err", err)
	}
	resp := errorResponse{
		Status:     "error",
		StatusCode: status,
		Message:    msg,
		RequestID:  util.RequestIDFromRequest(r),
	}
	if !s.production {
		resp.ErrorStack = errorChain(err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorChain flattens the wrapped errors, outermost first.
func errorChain(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, fmt.Sprintf("%T: %s", e, e.Error()))
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, strings.TrimSpace(r.URL.Path)))
}
