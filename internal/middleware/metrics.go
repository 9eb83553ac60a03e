package middleware

import (
	"fmt"
	"net/http"

	"tailor-be/internal/metrics"
)

// CountRequests tallies every request and its status class.
func CountRequests(reg *metrics.Registry) func(http.Handler) http.Handler {
	total := reg.Counter("http_requests_total")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			total.Inc()
			reg.Counter(fmt.Sprintf("http_responses_%dxx", rec.statusCode/100)).Inc()
		})
	}
}
