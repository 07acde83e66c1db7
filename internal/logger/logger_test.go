package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLog(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() {
		Log = previous
	})

	return logs
}

func TestInit(t *testing.T) {
	previous := Log
	defer func() {
		Log = previous
	}()

	require.NoError(t, Init("debug"))
	assert.Error(t, Init("loud"))
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int64
		expectedSize   int64
		expectedLevel  zapcore.Level
	}{
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				_, _ = w.Write([]byte("body"))
			},
			expectedStatus: http.StatusTeapot,
			expectedSize:   4,
			expectedLevel:  zapcore.InfoLevel,
		},
		{
			name: "implicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			expectedStatus: http.StatusOK,
			expectedSize:   2,
			expectedLevel:  zapcore.InfoLevel,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Ошибка сервера", http.StatusInternalServerError)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedSize:   int64(len("Ошибка сервера\n")),
			expectedLevel:  zapcore.WarnLevel,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			logs := observeLog(t)

			handler := middleware.RequestID(WithLoggingHTTPMiddleware(test.handler))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, test.expectedLevel, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, "/login", fields["uri"])
			assert.Equal(t, http.MethodGet, fields["method"])
			assert.Equal(t, test.expectedStatus, fields["status"])
			assert.Equal(t, test.expectedSize, fields["size"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}

func TestSync(t *testing.T) {
	observeLog(t)

	assert.NoError(t, Sync())
}
