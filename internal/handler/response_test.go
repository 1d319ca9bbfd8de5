package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/handler"
	"github.com/sakif/music-server/internal/storage"
)

func TestErrors_Write(t *testing.T) {
	uploadErr := fmt.Errorf("%w: %v", storage.ErrUploadFailed, errors.New("dial tcp: connection refused"))

	tests := []struct {
		name       string
		expose     bool
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"validation", false, apperror.ValidationFailed("title", "title is required"), 400, "validation_error", "title is required"},
		{"wrapped not found", false, fmt.Errorf("loading: %w", apperror.NotFound("album", "a1")), 404, "not_found", "album not found with id a1"},
		{"unauthorized", false, apperror.Unauthorized("sign in"), 401, "unauthorized", "sign in"},
		{"forbidden", false, apperror.Forbidden("admins only"), 403, "forbidden", "admins only"},
		{"conflict", false, apperror.Conflict("album", "a1"), 409, "conflict", "album conflict with id a1"},
		{"too large", false, apperror.TooLarge("file too large"), 413, "too_large", "file too large"},
		{"internal hidden", false, errors.New("sql: database is locked"), 500, "internal_error", "An internal error occurred"},
		{"internal exposed", true, errors.New("sql: database is locked"), 500, "internal_error", "sql: database is locked"},
		{"upload failure hidden", false, uploadErr, 500, "internal_error", "failed to upload file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := handler.NewErrors(tt.expose, quietLogger())
			rr := httptest.NewRecorder()

			errs.Write(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			body := decode[handler.ErrorResponse](t, rr)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
