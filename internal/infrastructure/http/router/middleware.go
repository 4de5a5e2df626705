package router

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/pkg/metrics"
)

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// instrument records request metrics by route pattern and recovers panics
func instrument(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic serving request",
					zap.Any("panic", p),
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path))
				rec.WriteHeader(http.StatusInternalServerError)
			}

			route := req.Pattern
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			if rec.status >= http.StatusInternalServerError {
				logger.Warn("request failed",
					zap.String("method", req.Method),
					zap.String("route", route),
					zap.Int("status", rec.status),
					zap.Duration("duration", elapsed))
			}
		}()

		next.ServeHTTP(rec, req)
	})
}
