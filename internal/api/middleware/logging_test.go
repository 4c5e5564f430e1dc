package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLog   bool
		wantLevel zapcore.Level
	}{
		{name: "successful api call", path: "/api/leaderboard", status: http.StatusOK, wantLog: true, wantLevel: zapcore.InfoLevel},
		{name: "client error", path: "/api/matches", status: http.StatusBadRequest, wantLog: true, wantLevel: zapcore.WarnLevel},
		{name: "server error", path: "/api/matches/x/compare", status: http.StatusInternalServerError, wantLog: true, wantLevel: zapcore.ErrorLevel},
		{name: "non api path", path: "/health", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := chiMiddleware.RequestID(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !tt.wantLog {
				assert.Zero(t, logs.Len())
				return
			}

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, http.MethodGet, fields["method"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}
