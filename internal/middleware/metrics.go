package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// Metrics tracks HTTP request duration and totals per method and status.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := wrapResponseWriter(w)
		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.status)

		metrics.RequestDuration.WithLabelValues(r.Method, status).Observe(duration)
		metrics.RequestTotal.WithLabelValues(r.Method, status).Inc()
	})
}
