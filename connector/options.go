package connector

import (
	"context"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

const metricConnectAttempts = "connector_connect_attempts_total"

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}

// attemptRecorder 记录连接尝试次数，按结果区分
type attemptRecorder struct {
	kind    string
	name    string
	counter metrics.Counter
}

func newAttemptRecorder(o *options, kind, name string) *attemptRecorder {
	counter, err := o.meter.Counter(metricConnectAttempts, "Number of connector connect attempts")
	if err != nil {
		o.logger.Warn("failed to create connector counter", clog.Error(err))
		counter, _ = metrics.Discard().Counter(metricConnectAttempts, "")
	}
	return &attemptRecorder{kind: kind, name: name, counter: counter}
}

func (r *attemptRecorder) record(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	r.counter.Inc(ctx,
		metrics.L("connector", r.kind),
		metrics.L("name", r.name),
		metrics.L(metrics.LabelOutcome, outcome),
	)
}
