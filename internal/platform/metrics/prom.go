package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// PromRecorder exports engine activity as Prometheus metrics.
type PromRecorder struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	runs        *prometheus.CounterVec
	pairings    *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
}

// NewPromRecorder registers the engine metrics on reg, reusing collectors that
// are already registered. A nil reg means the default registerer.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	transitions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stand_assignment_transitions_total",
		Help: "State transitions committed, by entity and target state",
	}, []string{"entity", "to"}))
	if err != nil {
		return nil, err
	}

	conflicts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stand_assignment_conflicts_detected_total",
		Help: "New conflicts stored by detection, by type",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stand_assignment_runs_total",
		Help: "Orchestrator runs, by algorithm and mode",
	}, []string{"algorithm", "mode"}))
	if err != nil {
		return nil, err
	}

	pairings, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stand_assignment_run_requests_total",
		Help: "Requests handled by orchestrator runs, by outcome",
	}, []string{"algorithm", "mode", "matched"}))
	if err != nil {
		return nil, err
	}

	runLatency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stand_assignment_run_duration_seconds",
		Help:    "Wall time of orchestrator runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"algorithm", "mode"}))
	if err != nil {
		return nil, err
	}

	return &PromRecorder{
		transitions: transitions,
		conflicts:   conflicts,
		runs:        runs,
		pairings:    pairings,
		runLatency:  runLatency,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}

	return c, nil
}

func (r *PromRecorder) RecordTransition(kind domain.EntityKind, to string) {
	r.transitions.WithLabelValues(string(kind), to).Inc()
}

func (r *PromRecorder) RecordConflictsDetected(typ domain.ConflictType, n int) {
	r.conflicts.WithLabelValues(string(typ)).Add(float64(n))
}

func (r *PromRecorder) RecordRun(algorithm, mode string, assigned, unmatched int, elapsed time.Duration) {
	r.runs.WithLabelValues(algorithm, mode).Inc()
	r.pairings.WithLabelValues(algorithm, mode, strconv.FormatBool(true)).Add(float64(assigned))
	r.pairings.WithLabelValues(algorithm, mode, strconv.FormatBool(false)).Add(float64(unmatched))
	r.runLatency.WithLabelValues(algorithm, mode).Observe(elapsed.Seconds())
}
