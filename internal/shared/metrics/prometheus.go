package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	personsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persons_registered_total",
			Help: "Total number of persons registered",
		},
		[]string{"category"},
	)

	sheltersRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelters_registered_total",
			Help: "Total number of shelters registered",
		},
		[]string{"risk_level"},
	)

	assignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelter_assignments_total",
			Help: "Total number of shelter assignment attempts",
		},
		[]string{"mode", "outcome"},
	)

	shelterOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelter_occupancy_ratio",
			Help: "Current occupancy as a fraction of capacity, per shelter",
		},
		[]string{"shelter"},
	)

	civilRegistryImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civil_registry_imports_total",
			Help: "Total number of records processed by the civil-registry importer",
		},
		[]string{"result"},
	)
)

// RecordPersonRegistered increments the person registration counter
func RecordPersonRegistered(category string) {
	personsRegistered.WithLabelValues(category).Inc()
}

// RecordShelterRegistered increments the shelter registration counter
func RecordShelterRegistered(riskLevel string) {
	sheltersRegistered.WithLabelValues(riskLevel).Inc()
}

// RecordAssignment increments the assignment counter.
// mode is "manual" or "auto"; outcome is "success" or the error code.
func RecordAssignment(mode, outcome string) {
	assignmentsTotal.WithLabelValues(mode, outcome).Inc()
}

// SetShelterOccupancy updates the occupancy gauge for a shelter
func SetShelterOccupancy(shelter string, occupancy, capacity int) {
	if capacity <= 0 {
		return
	}
	shelterOccupancy.WithLabelValues(shelter).Set(float64(occupancy) / float64(capacity))
}

// RecordCivilRegistryImport increments the importer counter.
// result is "imported", "skipped" or "failed".
func RecordCivilRegistryImport(result string) {
	civilRegistryImports.WithLabelValues(result).Inc()
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// Handler returns the Prometheus metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
