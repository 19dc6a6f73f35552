package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"circlo/internal/app/policies"
)

// Metrics owns a private registry so tests can build several instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	bookings     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	orders       prometheus.Counter
	gatewayFails *prometheus.CounterVec
	payments     *prometheus.CounterVec
	signatures   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "circlo_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_booking_requests_total",
			Help: "Booking requests by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_booking_transitions_total",
			Help: "Booking status transitions by target status.",
		}, []string{"to"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circlo_payment_orders_total",
			Help: "Payment orders opened with the gateway.",
		}),
		gatewayFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_gateway_failures_total",
			Help: "Gateway order failures by kind.",
		}, []string{"kind"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_payments_verified_total",
			Help: "Verified payments by callback source.",
		}, []string{"source"}),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circlo_signature_rejections_total",
			Help: "Rejected gateway signatures by callback source.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.bookings, m.transitions,
		m.orders, m.gatewayFails, m.payments, m.signatures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) BookingCreated()  { m.bookings.WithLabelValues("created").Inc() }
func (m *Metrics) BookingConflict() { m.bookings.WithLabelValues("conflict").Inc() }

func (m *Metrics) BookingTransitioned(to string) { m.transitions.WithLabelValues(to).Inc() }

func (m *Metrics) OrderCreated() { m.orders.Inc() }

func (m *Metrics) GatewayFailure(kind string) { m.gatewayFails.WithLabelValues(kind).Inc() }

func (m *Metrics) PaymentVerified(source string) { m.payments.WithLabelValues(source).Inc() }

func (m *Metrics) SignatureRejected(source string) { m.signatures.WithLabelValues(source).Inc() }

var _ policies.Metrics = (*Metrics)(nil)
