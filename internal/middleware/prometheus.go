package middleware

import (
	"net/http"
	"time"

	"github.com/crucial707/ledger/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// unmatchedPath labels requests no route matched, so arbitrary paths never become label values.
const unmatchedPath = "unmatched"

// Prometheus records request duration and count for each request, labelled by the chi
// route pattern so ids never become label values. /metrics itself is not recorded.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		statusW := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(statusW, r)
		if r.URL.Path == "/metrics" {
			return
		}

		path := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			path = rctx.RoutePattern()
		}
		if path == "" {
			path = unmatchedPath
		}
		metrics.RecordRequest(r.Method, path, statusW.status, time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
