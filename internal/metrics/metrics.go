package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "yoodesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	Claims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yoodesk",
		Name:      "claims_total",
		Help:      "Claim attempts by source (manual|auto) and outcome.",
	}, []string{"source", "outcome"})

	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yoodesk",
		Name:      "jobs_total",
		Help:      "Background jobs by kind and outcome (done|failed|dropped).",
	}, []string{"kind", "outcome"})

	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "yoodesk",
		Name:      "llm_request_duration_seconds",
		Help:      "Language model call latency by purpose and outcome.",
		Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30},
	}, []string{"purpose", "outcome"})
)

func ObserveLLM(purpose string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMLatency.WithLabelValues(purpose, outcome).Observe(time.Since(start).Seconds())
}

// Middleware records request latency under the matched route pattern so
// path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
