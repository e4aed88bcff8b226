package elab

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scheduler activity.
type Metrics struct {
	ModulesCreated     prometheus.Counter
	CacheHits          prometheus.Counter
	JobsRun            prometheus.Counter
	JobFailures        prometheus.Counter
	JobsPending        prometheus.Gauge
	RebuildDeleted     prometheus.Counter
	RebuildInvalidated prometheus.Counter
}

// NewMetrics creates the scheduler metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModulesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "modules_created_total",
			Help:      "Modules created on a signature miss.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "module_cache_hits_total",
			Help:      "Module lookups answered from the signature index.",
		}),
		JobsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "jobs_total",
			Help:      "Statement elaboration jobs run.",
		}),
		JobFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "job_failures_total",
			Help:      "Statement elaboration jobs that failed.",
		}),
		JobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "jobs_pending",
			Help:      "Jobs queued or running.",
		}),
		RebuildDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "rebuild_deleted_total",
			Help:      "Modules deleted by incremental rebuilds.",
		}),
		RebuildInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdlelab",
			Subsystem: "elab",
			Name:      "rebuild_invalidated_total",
			Help:      "Modules re-bound in place by incremental rebuilds.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ModulesCreated, m.CacheHits, m.JobsRun, m.JobFailures,
			m.JobsPending, m.RebuildDeleted, m.RebuildInvalidated,
		)
	}
	return m
}
