package gateway

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

// Option 网关选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	checks []connector.Connector
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("gateway")
		}
	}
}

// WithMeter 注入指标 Meter，同时用于暴露 /metrics
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithHealthChecks 注册 /healthz 需要探测的连接器
func WithHealthChecks(conns ...connector.Connector) Option {
	return func(o *options) {
		for _, c := range conns {
			if c != nil {
				o.checks = append(o.checks, c)
			}
		}
	}
}
