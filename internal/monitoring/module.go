package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// HealthTimeout bounds one health evaluation.
	HealthTimeout time.Duration
	// Gatherer defaults to the process-wide Prometheus registry that pkg/metrics registers into.
	Gatherer prometheus.Gatherer
}

// Module bundles the Prometheus handler, health probes and the maintenance job tracker.
type Module struct {
	gatherer prometheus.Gatherer
	health   *HealthManager
	jobs     *JobTracker
}

// NewModule constructs a monitoring module.
func NewModule(opts Options) *Module {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Module{
		gatherer: gatherer,
		health:   NewHealthManager(opts.HealthTimeout),
		jobs:     NewJobTracker(),
	}
}

// Handler returns an http.Handler serving Prometheus metrics.
func (m *Module) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Health exposes the health manager responsible for liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

// Jobs exposes the maintenance job tracker.
func (m *Module) Jobs() *JobTracker {
	if m == nil {
		return nil
	}
	return m.jobs
}
