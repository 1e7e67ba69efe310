package durable

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

// Option 命名空间选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	serializer string
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("durable")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithSerializer 设置实例存储的序列化方式 (msgpack | json)
func WithSerializer(name string) Option {
	return func(o *options) {
		o.serializer = name
	}
}
