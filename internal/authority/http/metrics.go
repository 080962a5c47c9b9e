package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/labauth/internal/authority/service"
)

// Metrics holds the authority's Prometheus collectors.
type Metrics struct {
	Logins   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labauth",
			Subsystem: "authority",
			Name:      "logins_total",
			Help:      "Login attempts partitioned by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labauth",
			Subsystem: "authority",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies partitioned by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.Logins, m.Duration)
	return m
}

// Middleware records the request duration. It must wrap the ServeMux
// directly, since the matched pattern is read back from the request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		// Unmatched paths share one label to keep cardinality bounded
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.Duration.With(prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(rec.status),
		}).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) loginOutcome(endpoint, outcome string) {
	m.Logins.WithLabelValues(endpoint, outcome).Inc()
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrInvalidSecondFactor):
		return "invalid_second_factor"
	case errors.Is(err, service.ErrCredentialChangeRequired):
		return "credential_change_required"
	case errors.Is(err, service.ErrSecondFactorRequired):
		return "second_factor_required"
	case errors.Is(err, service.ErrMFASetupRequired):
		return "setup_required"
	default:
		return "error"
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
