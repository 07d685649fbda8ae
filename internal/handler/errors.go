package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError answers 422 for a request rejected before reaching the
// service layer (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// serviceError maps a service error onto the HTTP status the API documents.
// what names the resource for 404 messages, e.g. "trip".
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, what string, err error) {
	var (
		rangeErr *domain.InvalidRangeError
		indexErr *domain.InvalidIndexError
	)
	switch {
	case errors.As(err, &rangeErr):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", rangeErr.Error())
	case errors.As(err, &indexErr):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", indexErr.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", what+" not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", unwrapMessage(err, domain.ErrForbidden))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", unwrapMessage(err, domain.ErrConflict))
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.TripService.Create: validation error: title is required" -> "title is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
// A body over the size limit answers 413; any other problem answers 422.
// Reports whether decoding succeeded; on failure the response is written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	if errors.Is(err, io.EOF) {
		requestError(w, "request body is required")
		return false
	}
	requestError(w, "invalid request body: "+err.Error())
	return false
}
