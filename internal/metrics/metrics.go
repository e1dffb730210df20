package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var idSegment = regexp.MustCompile(`^([0-9]+|[0-9a-fA-F-]{32,36}|[0-9]+-[0-9a-z-]+)$`)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry  *prometheus.Registry
	fallbacks *prometheus.CounterVec
	upstream  *prometheus.HistogramVec
	requests  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_fallback_total",
			Help: "Reads and writes served from the local cache because the tenant API failed.",
		}, []string{"resource"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_upstream_request_duration_seconds",
			Help:    "Latency of tenant API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Requests served by the gateway.",
		}, []string{"method", "status"}),
	}
	m.registry.MustRegister(
		m.fallbacks,
		m.upstream,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Fallback(resource string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(resource).Inc()
}

func (m *Metrics) ObserveUpstream(method string, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.upstream.WithLabelValues(method, Route(path), code).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Route replaces id-like path segments with ":id" to keep label
// cardinality bounded.
func Route(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if idSegment.MatchString(segment) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
