package durable

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

const (
	// MetricCalls 对象调用次数 (Counter)
	MetricCalls = "durable_object_calls_total"

	// MetricGateWait 等待输入门的耗时 (Histogram)
	MetricGateWait = "durable_object_gate_wait_seconds"

	// MetricInstances 活跃实例数 (Gauge)
	MetricInstances = "durable_object_instances"

	// LabelNamespace 命名空间标签
	LabelNamespace = "namespace"
)

type nsMetrics struct {
	calls     metrics.Counter
	gateWait  metrics.Histogram
	instances metrics.Gauge
}

func newNSMetrics(m metrics.Meter, logger clog.Logger) *nsMetrics {
	out := &nsMetrics{}
	var err error
	if out.calls, err = m.Counter(MetricCalls, "Number of durable object calls"); err != nil {
		logger.Warn("failed to create metric", clog.String("metric", MetricCalls), clog.Error(err))
		out.calls, _ = metrics.Discard().Counter(MetricCalls, "")
	}
	if out.gateWait, err = m.Histogram(MetricGateWait, "Time spent waiting for the object input gate", metrics.WithUnit("s")); err != nil {
		logger.Warn("failed to create metric", clog.String("metric", MetricGateWait), clog.Error(err))
		out.gateWait, _ = metrics.Discard().Histogram(MetricGateWait, "")
	}
	if out.instances, err = m.Gauge(MetricInstances, "Number of live durable object instances"); err != nil {
		logger.Warn("failed to create metric", clog.String("metric", MetricInstances), clog.Error(err))
		out.instances, _ = metrics.Discard().Gauge(MetricInstances, "")
	}
	return out
}
