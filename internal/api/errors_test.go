package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/format-smormat/backend/internal/intake"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewNotFoundError("record", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped api error", fmt.Errorf("outer: %w", NewConflictError("busy")), http.StatusConflict, "CONFLICT"},
		{"unsupported batch", &intake.UnsupportedFileTypeError{Names: []string{"a.txt"}}, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"},
		{"echo error", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", nil)
			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[APIError](t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestNewUnsupportedFileTypeError(t *testing.T) {
	err := NewUnsupportedFileTypeError(&intake.UnsupportedFileTypeError{Names: []string{"a.txt", "b.png"}})

	assert.Equal(t, http.StatusUnsupportedMediaType, err.Status)
	assert.Equal(t, "Only HTML files are supported", err.Message)
	assert.Equal(t, "rejected: [a.txt b.png]", err.Details)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE: Only HTML files are supported", err.Error())
}
