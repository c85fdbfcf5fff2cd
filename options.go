package poolparty

import (
	"github.com/Swind/go-pool-party/core"
	"go.uber.org/zap"
)

// Option configures a ThreadPool at construction time.
type Option func(*options)

type options struct {
	id                  string
	logger              core.Logger
	panicHandler        core.PanicHandler
	metrics             core.Metrics
	rejectedTaskHandler core.RejectedTaskHandler
	factory             core.ThreadFactory
}

func defaultOptions() options {
	return options{factory: core.GoroutineFactory{}}
}

// WithID names the pool in logs and metrics. Defaults to "pool-<uuid>".
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger used by the pool and its default handlers.
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithZapLogger is WithLogger for a *zap.Logger.
func WithZapLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = core.NewZapLogger(logger) }
}

// WithPanicHandler sets the handler notified when a task panics.
func WithPanicHandler(h core.PanicHandler) Option {
	return func(o *options) { o.panicHandler = h }
}

// WithMetrics sets the metrics sink, e.g. a Prometheus exporter.
func WithMetrics(m core.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRejectedTaskHandler sets the handler notified when a submission is refused.
func WithRejectedTaskHandler(h core.RejectedTaskHandler) Option {
	return func(o *options) { o.rejectedTaskHandler = h }
}

// WithThreadFactory replaces the goroutine factory used to start workers.
func WithThreadFactory(f core.ThreadFactory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}
