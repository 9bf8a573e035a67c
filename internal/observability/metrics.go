package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metric outcome labels.
const (
	ResultOK       = "ok"
	ResultExpired  = "expired"
	ResultConsumed = "consumed"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics exposes the application-level instruments. All counters use a
// small fixed label set to keep cardinality bounded.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration    *prometheus.HistogramVec
	magicLinkIssued prometheus.Counter
	magicLinkVerify *prometheus.CounterVec
	sessionIssued   prometheus.Counter
	apiKeyVerify    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "won_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		magicLinkIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "won_magiclink_issued_total",
			Help: "Magic links requested and sent.",
		}),
		magicLinkVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "won_magiclink_verify_total",
			Help: "Magic link verification attempts by outcome.",
		}, []string{"result"}),
		sessionIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "won_session_issued_total",
			Help: "Sessions issued after successful login.",
		}),
		apiKeyVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "won_apikey_verify_total",
			Help: "API key verification attempts by outcome.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.httpDuration,
		m.magicLinkIssued,
		m.magicLinkVerify,
		m.sessionIssued,
		m.apiKeyVerify,
	)
	return m
}

func (m *Metrics) RecordMagicLinkIssued() {
	m.magicLinkIssued.Inc()
}

func (m *Metrics) RecordMagicLinkVerify(result string) {
	m.magicLinkVerify.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSessionIssued() {
	m.sessionIssued.Inc()
}

func (m *Metrics) RecordAPIKeyVerify(result string) {
	m.apiKeyVerify.WithLabelValues(result).Inc()
}

// MetricsMiddleware records per-request latency. Unmatched routes share
// one "unknown" label so scanners cannot inflate cardinality.
func (m *Metrics) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
