package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver receives one observation per completed request.
type HTTPObserver interface {
	ObserveRequest(method, route, status string, duration time.Duration)
}

// Metrics reports request latency keyed by the chi route pattern so ids in
// the path do not explode label cardinality.
func Metrics(observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			observer.ObserveRequest(r.Method, routeLabel(r), strconv.Itoa(defaultStatus(rec.status)), time.Since(start))
		})
	}
}

func routeLabel(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
