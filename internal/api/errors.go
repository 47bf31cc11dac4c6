package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/safar/go-ticket-desk/internal/auth"
	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/database"
	"go.uber.org/zap"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInvalidCursor      = "invalid_cursor"
	codeInvalidScreenshot  = "invalid_screenshot"
	codeValidationFailed   = "validation_failed"
	codeInsufficientSeats  = "insufficient_seats"
	codeNotFound           = "not_found"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeInvalidCredentials = "invalid_credentials"
	codeUsernameTaken      = "username_taken"
	codeInUse              = "in_use"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps the booking and auth error taxonomy onto HTTP.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *booking.ValidationError
	var input *auth.InputError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeValidationFailed, Field: validation.Field})
	case errors.As(err, &input):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeValidationFailed, Field: input.Field})
	case errors.Is(err, booking.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, codeInsufficientSeats, "not enough seats available")
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrEventNotFound),
		errors.Is(err, database.ErrLinkNotFound),
		errors.Is(err, database.ErrTemplateNotFound),
		errors.Is(err, database.ErrCityNotFound),
		errors.Is(err, database.ErrImageNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, "not allowed to modify this resource")
	case errors.Is(err, database.ErrReferenced):
		writeError(w, http.StatusConflict, codeInUse, "resource is still referenced by orders, events or links")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, err.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, codeUsernameTaken, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
