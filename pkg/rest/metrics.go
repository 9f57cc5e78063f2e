package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/restq/restq/pkg/httputil/middleware"
	"github.com/restq/restq/pkg/metrics"
)

// instrument counts and times every request to an entity endpoint, labeled
// by entity name, operation and response status.
func instrument(entityName, operation string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := middleware.NewResponseRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.Requests.WithLabelValues(entityName, operation, strconv.Itoa(rec.StatusCode)).Inc()
		metrics.RequestDuration.WithLabelValues(entityName, operation).Observe(time.Since(start).Seconds())
	})
}
