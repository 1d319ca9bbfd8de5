package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or Errors.Write, so every error
// body has the same shape:
//
//	{"error": "not_found", "message": "album not found with id abc123"}
//
// "error" is the machine-readable kind, "message" the human text. The
// front-end reads "message" for toasts and switches on "error".

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/storage"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// MessageResponse is the body of deletes and logout.
type MessageResponse struct {
	Message string `json:"message"`
}

const internalErrorMessage = "An internal error occurred"

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body; once Encode writes, they
// are gone.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// Errors maps domain errors to HTTP responses. One instance is shared by
// every handler and by the upload middleware.
type Errors struct {
	expose bool // show raw messages of unexpected errors
	logger *slog.Logger
}

// NewErrors builds the error writer. With expose set, a 500 carries the
// underlying error text; otherwise a fixed message.
func NewErrors(expose bool, logger *slog.Logger) *Errors {
	return &Errors{expose: expose, logger: logger}
}

// Write matches upload.ErrorWriter.
//
// The service layer returns apperror values, possibly wrapped with
// fmt.Errorf("...: %w"). errors.Is walks the chain, so a wrapped
// ValidationFailed still lands on 400.
func (e *Errors) Write(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)

	if status == http.StatusInternalServerError {
		e.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		message := internalErrorMessage
		switch {
		case e.expose:
			message = err.Error()
		case errors.Is(err, storage.ErrUploadFailed):
			message = storage.ErrUploadFailed.Error()
		}
		writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
		return
	}

	message := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func classify(err error) (int, string) {
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
	case errors.Is(err, apperror.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
