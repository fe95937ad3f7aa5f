package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "trayctl"

// Registry holds all application metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg *prometheus.Registry

	ActionsTotal    CounterVec
	StoreMutations  Counter
	RestartDuration Histogram
	RestartTimeouts Counter
}

// Counter is a cumulative metric that only increases.
type Counter interface {
	Inc()
	Add(float64)
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

// Histogram samples observations and counts them in buckets.
type Histogram interface {
	Observe(float64)
}

type counterVec struct {
	v *prometheus.CounterVec
}

func (c counterVec) WithLabelValues(lvs ...string) Counter {
	return c.v.WithLabelValues(lvs...)
}

// NewRegistry creates the metrics and registers them with a private
// registry, together with the Go runtime collector.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Actions run, by verb and result.",
	}, []string{"action", "result"})
	mutations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_mutations_total",
		Help:      "Values written or deleted in the config store.",
	})
	restart := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "shell_restart_seconds",
		Help:      "Time taken to restart the desktop shell.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shell_restart_timeouts_total",
		Help:      "Shell restarts that exceeded the poll bound.",
	})

	reg.MustRegister(actions, mutations, restart, timeouts, collectors.NewGoCollector())

	return &Registry{
		reg:             reg,
		ActionsTotal:    counterVec{actions},
		StoreMutations:  mutations,
		RestartDuration: restart,
		RestartTimeouts: timeouts,
	}
}

// Register adds an extra collector, such as a SnapshotCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(c)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveAction counts one action outcome.
func (r *Registry) ObserveAction(action string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.ActionsTotal.WithLabelValues(action, result).Inc()
}

// AddMutations counts store writes and deletes.
func (r *Registry) AddMutations(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.StoreMutations.Add(float64(n))
}

// ObserveRestart records a shell restart.
func (r *Registry) ObserveRestart(d time.Duration, timedOut bool) {
	if r == nil {
		return
	}
	r.RestartDuration.Observe(d.Seconds())
	if timedOut {
		r.RestartTimeouts.Inc()
	}
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The write is atomic, so node_exporter never sees a partial file.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
