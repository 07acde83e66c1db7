// Package logger holds the portal's global zap logger and the HTTP access log.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Log is a no-op until Init replaces it.
var Log = zap.NewNop().Sugar()

// Init builds Log for level: "debug", "info", "warn", "error" or "fatal".
func Init(level string) error {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomicLevel
	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built.Sugar()

	return nil
}

// Sync flushes Log. Stdout and stderr report os.ErrInvalid on sync, that is ignored.
func Sync() error {
	err := Log.Sync()
	if err == nil || errors.Is(err, os.ErrInvalid) {
		return nil
	}

	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	rec.status = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.size += n

	return n, err
}

// WithLoggingHTTPMiddleware writes one access-log entry per request. Server
// errors are logged as warnings.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		h.ServeHTTP(rec, r)

		fields := []interface{}{
			"uri", r.RequestURI,
			"method", r.Method,
			"status", rec.status,
			"duration", time.Since(start),
			"size", rec.size,
			"request_id", middleware.GetReqID(r.Context()),
		}
		if rec.status >= http.StatusInternalServerError {
			Log.Warnw("request failed", fields...)
			return
		}
		Log.Infow("request served", fields...)
	})
}
