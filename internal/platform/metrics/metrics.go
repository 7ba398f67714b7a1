// Package metrics exposes Prometheus collectors for lifecycle operations.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"AMS-backend/internal/platform/apperr"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "lifecycle_operations_total",
		Help:      "Asset lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})

	durations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ams",
		Name:      "lifecycle_operation_seconds",
		Help:      "Latency of asset lifecycle operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// Observe records one finished operation. Use with defer:
//
//	defer metrics.Observe("scrap", time.Now(), &err)
func Observe(op string, started time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = string(apperr.KindOf(*errp))
	}
	operations.WithLabelValues(op, outcome).Inc()
	durations.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) { h.ServeHTTP(c.Writer, c.Request) }
}
