package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so all responses
// share one shape. Errors always look like
//
//	{"error": "not_found", "message": "artifact not found with id abc123"}
//
// "error" is a stable machine-readable kind; "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/artifact-cms/internal/apperror"
)

// maxBodyBytes caps request bodies. Artifact code alone may be 1 MiB; the
// rest is headroom for JSON escaping of that code.
const maxBodyBytes = 10 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse acknowledges an operation that has nothing else to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sets the header, then the status, then encodes the body.
// Headers set after the first Write are silently dropped, hence the order.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// The status line is already sent; an encode failure here can only
		// mean the client went away.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// errorStatus maps a domain error onto an HTTP status and error kind.
// The service layer never sees status codes; this is the only place they
// are chosen.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError translates err into a response.
//
// Only *apperror.AppError messages are shown to the client. Anything else
// is an unexpected failure: it is logged in full and the client gets a
// generic 500, because raw errors can carry SQL, file paths and the like.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := errorStatus(err)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body too large")
		}
		return apperror.ValidationFailed("body", "invalid JSON in request body")
	}
	return nil
}
