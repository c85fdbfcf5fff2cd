package prometheus

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Swind/go-pool-party/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector when no namespace is given.
const DefaultNamespace = "poolparty"

const unknownLabel = "unknown"

// Panic kinds used as the "kind" label of task_panic_total.
const (
	PanicKindRuntime = "runtime"
	PanicKindError   = "error"
	PanicKindValue   = "value"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets defaults to prom.DefBuckets.
	DurationBuckets []float64

	// ConstLabels are attached to every series, e.g. the service running the pools.
	ConstLabels prom.Labels
}

// MetricsExporter implements core.Metrics on Prometheus collectors. Every
// series carries a "pool" label with the pool ID.
type MetricsExporter struct {
	durations  *prom.HistogramVec
	panics     *prom.CounterVec
	rejections *prom.CounterVec
	queueDepth *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter registers the pool collectors on reg, or on
// prom.DefaultRegisterer when reg is nil. Exporters built on the same registry
// and namespace share collectors, so several pools can report through them.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	namespace = normalizeLabel(namespace, DefaultNamespace)
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	m := &MetricsExporter{
		durations: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_duration_seconds",
			Help:        "Time a worker spent running one task, panics included.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"pool"}),
		panics: prom.NewCounterVec(prom.CounterOpts{
			Namespace:   namespace,
			Name:        "task_panic_total",
			Help:        "Tasks that panicked, by kind of panic value.",
			ConstLabels: opts.ConstLabels,
		}, []string{"pool", "kind"}),
		rejections: prom.NewCounterVec(prom.CounterOpts{
			Namespace:   namespace,
			Name:        "task_rejected_total",
			Help:        "Submissions the pool refused, by reason.",
			ConstLabels: opts.ConstLabels,
		}, []string{"pool", "reason"}),
		queueDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace:   namespace,
			Name:        "queue_depth",
			Help:        "Tasks waiting for a worker, as last reported by the pool.",
			ConstLabels: opts.ConstLabels,
		}, []string{"pool"}),
	}

	var err error
	if m.durations, err = registerCollector(reg, m.durations); err != nil {
		return nil, fmt.Errorf("register task duration histogram: %w", err)
	}
	if m.panics, err = registerCollector(reg, m.panics); err != nil {
		return nil, fmt.Errorf("register task panic counter: %w", err)
	}
	if m.rejections, err = registerCollector(reg, m.rejections); err != nil {
		return nil, fmt.Errorf("register task rejected counter: %w", err)
	}
	if m.queueDepth, err = registerCollector(reg, m.queueDepth); err != nil {
		return nil, fmt.Errorf("register queue depth gauge: %w", err)
	}
	return m, nil
}

// RecordTaskDuration implements core.Metrics.
func (m *MetricsExporter) RecordTaskDuration(poolID string, duration time.Duration) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(poolLabel(poolID)).Observe(duration.Seconds())
}

// RecordTaskPanic implements core.Metrics. The panic value itself is not
// exported; only its kind, see PanicKind.
func (m *MetricsExporter) RecordTaskPanic(poolID string, panicInfo any) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(poolLabel(poolID), PanicKind(panicInfo)).Inc()
}

// RecordQueueDepth implements core.Metrics.
func (m *MetricsExporter) RecordQueueDepth(poolID string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(poolLabel(poolID)).Set(float64(depth))
}

// RecordTaskRejected implements core.Metrics.
func (m *MetricsExporter) RecordTaskRejected(poolID string, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(poolLabel(poolID), normalizeLabel(reason, unknownLabel)).Inc()
}

// PanicKind classifies a recovered panic value: a runtime.Error (nil map
// write, index out of range), any other error, or a plain value.
func PanicKind(panicInfo any) string {
	switch panicInfo.(type) {
	case runtime.Error:
		return PanicKindRuntime
	case error:
		return PanicKindError
	default:
		return PanicKindValue
	}
}

func poolLabel(poolID string) string {
	return normalizeLabel(poolID, unknownLabel)
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// registerCollector registers collector, or returns the collector already
// registered under the same descriptor.
func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
