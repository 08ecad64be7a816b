package metrics

import (
	"github.com/claude/weightlog/internal/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the Prometheus collectors for import activity.
type Manager struct {
	CounterImportRequests *prometheus.CounterVec
	CounterWorkouts       *prometheus.CounterVec
	CounterSets           prometheus.Counter
	HistImportDuration    prometheus.Histogram
}

// NewTestManagerAndRegistry returns a Manager registered on a fresh registry.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("weightlog", "test", reg), reg
}

// NewManager registers all collectors on reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterImportRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_requests_total",
			Help:      "Import requests by source and status",
		}, []string{"source", "status"}),
		CounterWorkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_workouts_total",
			Help:      "Grouped workouts by import outcome",
		}, []string{"outcome"}),
		CounterSets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_sets_received_total",
			Help:      "Sets parsed from import payloads",
		}),
		HistImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_duration_seconds",
			Help:      "Time spent processing one import request",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveImport records one finished import. result may be nil on failure.
func (m *Manager) ObserveImport(source string, result *ingest.Result, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CounterImportRequests.WithLabelValues(source, status).Inc()
	m.HistImportDuration.Observe(seconds)
	if result == nil {
		return
	}
	m.CounterWorkouts.WithLabelValues("imported").Add(float64(result.WorkoutsImported))
	m.CounterWorkouts.WithLabelValues("skipped").Add(float64(result.WorkoutsSkipped))
	m.CounterWorkouts.WithLabelValues("failed").Add(float64(result.WorkoutsFailed))
	m.CounterSets.Add(float64(result.SetsReceived))
}

// SetupPrometheus creates a registry with the Go runtime and process
// collectors plus any extra collectors (e.g. the pgx pool).
func SetupPrometheus(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}
