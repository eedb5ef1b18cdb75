package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/glwatch/pkg/logger"
	"github.com/okian/glwatch/pkg/metrics"
)

// instrument records count, latency and error class for endpoint and logs
// the request at debug level.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		elapsed := time.Since(start)

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(elapsed.Microseconds())/1000)
		if class := errorClass(status); class != "" {
			metrics.RecordErrorByComponent("http", class)
		}

		s.logger.Debug(r.Context(), "request served",
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.Int("status", status),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("elapsed", elapsed),
		)
	}
}

// errorClass buckets failed responses; successful ones map to "".
func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusRequestEntityTooLarge:
		return "too_large"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return ""
	}
}
