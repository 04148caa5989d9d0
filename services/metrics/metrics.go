package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeLocked labels runs skipped because another run was in progress.
	OutcomeLocked = "locked"
)

var (
	groupFilterRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "group_filter_runs_total",
			Help:      "Total number of group filter runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	groupFilterRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rollcall",
			Name:      "group_filter_run_seconds",
			Help:      "Group filter run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	groupFiltersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "group_filters_total",
			Help:      "Total number of per-group filter computations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	groupMemberships = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rollcall",
			Name:      "group_memberships",
			Help:      "Number of group memberships after the last group filter run.",
		},
	)
)

// Register attaches the rollcall collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		groupFilterRunsTotal,
		groupFilterRunSeconds,
		groupFiltersTotal,
		groupMemberships,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Observer records group filter runs.
type Observer struct{}

var _ group.RunObserver = Observer{} // interface compliance check

func (Observer) ObserveRun(report group.RunReport, err error) {
	switch {
	case errors.Cause(err) == core.ErrLocked:
		groupFilterRunsTotal.WithLabelValues(OutcomeLocked).Inc()
		return
	case err != nil:
		groupFilterRunsTotal.WithLabelValues(OutcomeError).Inc()
	default:
		groupFilterRunsTotal.WithLabelValues(OutcomeSuccess).Inc()
		groupMemberships.Set(float64(len(report.Memberships)))
	}

	for _, o := range report.Groups {
		outcome := OutcomeSuccess
		if o.Failed() {
			outcome = OutcomeError
		}
		groupFiltersTotal.WithLabelValues(outcome).Inc()
	}

	if !report.FinishedAt.IsZero() {
		d := report.Duration()
		if d < 0 {
			d = 0
		}
		groupFilterRunSeconds.Observe(d.Seconds())
	}
}
