package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
	logsvc "github.com/wisonline/woec/services/logger"
)

func TestAppHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantShutdown bool
	}{
		{name: "not found", err: application.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "invalid transition", err: errors.Wrap(application.ErrInvalidTransition, "approving"), wantCode: http.StatusConflict},
		{name: "validation", err: core.NewValidationError(nil, core.FieldError{Field: "email", Error: "bad"}), wantCode: http.StatusBadRequest},
		{name: "too many requests", err: errTooManyRequests, wantCode: http.StatusTooManyRequests},
		{name: "server error", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
		{name: "shutdown", err: errors.Wrap(core.NewShutdownError("rollback failed"), "approving"), wantCode: http.StatusInternalServerError, wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdownCalls int
			handler := newAppHTTPErrorHandler(logsvc.NewNopLogger(), core.NewTranslator(), func() { shutdownCalls++ })

			rec := httptest.NewRecorder()
			ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantShutdown {
				assert.Equal(t, 1, shutdownCalls)
			} else {
				assert.Zero(t, shutdownCalls)
			}
		})
	}
}
