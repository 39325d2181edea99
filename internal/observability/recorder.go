// Package observability provides timing instrumentation for cache operations
// and prometheus collectors for per-tenant cache statistics.
package observability

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

const namespace = "objcache"

// Measurement accumulates the elapsed times of one operation.
type Measurement struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// Add records one invocation that took elapsed.
func (m *Measurement) Add(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == 0 || elapsed < m.min {
		m.min = elapsed
	}
	if elapsed > m.max {
		m.max = elapsed
	}
	m.count++
	m.total += elapsed
}

// Stats returns a consistent copy of the accumulated values.
func (m *Measurement) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Count: m.count, Min: m.min, Max: m.max, Total: m.total}
	if m.count > 0 {
		s.Average = m.total / time.Duration(m.count)
	}
	return s
}

// Stats is a point-in-time view of a Measurement.
type Stats struct {
	Count   int64         `json:"count"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Total   time.Duration `json:"total"`
}

// Recorder keeps one Measurement per operation name and mirrors every
// observation into prometheus.
type Recorder struct {
	model        string
	measurements *xsync.MapOf[string, *Measurement]
	duration     *prometheus.HistogramVec
	calls        *prometheus.CounterVec
}

// NewRecorder creates a recorder for operations on caches of model.
// Its prometheus metrics are registered with reg when reg is not nil.
func NewRecorder(model string, reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		model:        model,
		measurements: xsync.NewMapOf[string, *Measurement](),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Time spent in cache operations",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"model", "operation"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "calls_total",
			Help:      "Number of cache operation invocations",
		}, []string{"model", "operation"}),
	}
	if reg != nil {
		reg.MustRegister(r.duration, r.calls)
	}
	return r
}

// Observe records that operation took elapsed.
func (r *Recorder) Observe(operation string, elapsed time.Duration) {
	m, _ := r.measurements.LoadOrCompute(operation, func() *Measurement { return &Measurement{} })
	m.Add(elapsed)
	r.duration.WithLabelValues(r.model, operation).Observe(elapsed.Seconds())
	r.calls.WithLabelValues(r.model, operation).Inc()
}

// Time records the time elapsed since start under operation.
// It is meant to be deferred: defer r.Time("update", time.Now()).
func (r *Recorder) Time(operation string, start time.Time) {
	r.Observe(operation, time.Since(start))
}

// Snapshot returns the stats of every operation observed so far.
func (r *Recorder) Snapshot() map[string]Stats {
	out := make(map[string]Stats, r.measurements.Size())
	r.measurements.Range(func(op string, m *Measurement) bool {
		out[op] = m.Stats()
		return true
	})
	return out
}

// Operations returns the observed operation names in sorted order.
func (r *Recorder) Operations() []string {
	ops := make([]string, 0, r.measurements.Size())
	r.measurements.Range(func(op string, _ *Measurement) bool {
		ops = append(ops, op)
		return true
	})
	slices.Sort(ops)
	return ops
}

// Reset drops all accumulated measurements. Prometheus counters are not reset.
func (r *Recorder) Reset() {
	r.measurements.Clear()
}
