package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics. A nil *Metrics is a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	borrows      *prometheus.CounterVec
	returns      *prometheus.CounterVec
	itemsOut     prometheus.Counter
	itemsBack    prometheus.Counter
}

// New registers the collectors on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: g,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borrow_submissions_total",
			Help: "Borrow submissions by outcome.",
		}, []string{"outcome"}),
		returns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borrow_returns_total",
			Help: "Return operations by outcome.",
		}, []string{"outcome"}),
		itemsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borrow_items_borrowed_total",
			Help: "Item units checked out.",
		}),
		itemsBack: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borrow_items_returned_total",
			Help: "Item units returned.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.borrows, m.returns, m.itemsOut, m.itemsBack)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request. route is the matched mux
// pattern, so label cardinality stays bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// BorrowCreated counts a stored borrow log and its item units.
func (m *Metrics) BorrowCreated(units int) {
	if m == nil {
		return
	}
	m.borrows.WithLabelValues("created").Inc()
	m.itemsOut.Add(float64(units))
}

// BorrowRejected counts a borrow submission that failed.
func (m *Metrics) BorrowRejected() {
	if m == nil {
		return
	}
	m.borrows.WithLabelValues("rejected").Inc()
}

// ReturnRecorded counts a persisted return. outcome is the resulting status.
func (m *Metrics) ReturnRecorded(outcome string, units int) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(outcome).Inc()
	m.itemsBack.Add(float64(units))
}

// ReturnRejected counts a failed return, labelled by reason.
func (m *Metrics) ReturnRejected(reason string) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(reason).Inc()
}
