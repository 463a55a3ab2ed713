// Package metrics exposes the Prometheus collectors of the POS API: HTTP
// request counters and latencies plus a handful of domain counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so several instances (one per test) never
// collide on registration.  All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	salesCommitted *prometheus.CounterVec
	salesDeleted   prometheus.Counter
	settlements    *prometheus.CounterVec
	logins         *prometheus.CounterVec
	tenantPoolOpen prometheus.Gauge
}

// New creates and registers every collector under the given prefix.
func New(prefix string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		salesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_sales_committed_total",
			Help: "Sales committed, by payment method",
		}, []string{"payment_method"}),
		salesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_sales_deleted_total",
			Help: "Sales deleted by an admin",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_delivery_settlements_total",
			Help: "Delivery settlements recorded, by kind (full, partial)",
		}, []string{"kind"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_logins_total",
			Help: "Login attempts, by outcome",
		}, []string{"outcome"}),
		tenantPoolOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_tenant_pool_open",
			Help: "Tenant stores currently held open",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.salesCommitted, m.salesDeleted, m.settlements, m.logins, m.tenantPoolOpen,
	)
	return m
}

// Middleware records count and latency of every request, labelled by the
// route pattern rather than the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := strconv.Itoa(c.Response().Status)
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.requests.WithLabelValues(c.Request().Method, path, status).Inc()
			m.duration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SaleCommitted(method string) {
	if m != nil {
		m.salesCommitted.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) SaleDeleted() {
	if m != nil {
		m.salesDeleted.Inc()
	}
}

func (m *Metrics) Settlement(kind string) {
	if m != nil {
		m.settlements.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

// SetTenantPoolOpen is wired to tenant.Pool.OnChange.
func (m *Metrics) SetTenantPoolOpen(n int) {
	if m != nil {
		m.tenantPoolOpen.Set(float64(n))
	}
}
