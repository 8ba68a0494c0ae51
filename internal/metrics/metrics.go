package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// outcome: started, resumed
	AttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Attempts handed out by StartAttempt",
		},
		[]string{"outcome"},
	)

	// reason: submitted, time_out
	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_finalized_total",
			Help: "Attempts closed, by end reason",
		},
		[]string{"reason"},
	)

	// verdict: correct, incorrect, manual
	AnswersUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_upserted_total",
			Help: "Answers written, by auto-grading verdict",
		},
		[]string{"verdict"},
	)

	CorrectionsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_corrections_applied_total",
			Help: "Manual corrections applied by graders",
		},
	)

	EventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_event_publish_failures_total",
			Help: "Domain events that could not be delivered",
		},
		[]string{"event_type"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry; safe to call twice
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsFinalized,
			AnswersUpserted,
			CorrectionsApplied,
			EventPublishFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
