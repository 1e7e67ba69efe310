package dlock

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

// Metrics 指标常量定义
const (
	// MetricLockAcquired 锁获取成功次数 (Counter)
	MetricLockAcquired = "dlock_lock_acquired_total"

	// MetricLockFailed 锁获取失败次数 (Counter)
	MetricLockFailed = "dlock_lock_failed_total"

	// MetricLockReleased 锁释放次数 (Counter)
	MetricLockReleased = "dlock_lock_released_total"

	// MetricLockAttempts 单次 Lock 的尝试次数 (Histogram)
	MetricLockAttempts = "dlock_lock_attempts"

	// MetricLockHoldDuration 锁持有时长 (Histogram)
	MetricLockHoldDuration = "dlock_lock_hold_duration_seconds"

	// LabelReason 失败原因标签: timeout | canceled | storage
	LabelReason = "reason"
)

type lockMetrics struct {
	acquired metrics.Counter
	failed   metrics.Counter
	released metrics.Counter
	attempts metrics.Histogram
	hold     metrics.Histogram
}

func newLockMetrics(m metrics.Meter, logger clog.Logger) *lockMetrics {
	discard := metrics.Discard()
	counter := func(name, desc string) metrics.Counter {
		c, err := m.Counter(name, desc)
		if err != nil {
			logger.Warn("failed to create metric", clog.String("metric", name), clog.Error(err))
			c, _ = discard.Counter(name, desc)
		}
		return c
	}
	histogram := func(name, desc string, opts ...metrics.MetricOption) metrics.Histogram {
		h, err := m.Histogram(name, desc, opts...)
		if err != nil {
			logger.Warn("failed to create metric", clog.String("metric", name), clog.Error(err))
			h, _ = discard.Histogram(name, desc)
		}
		return h
	}

	return &lockMetrics{
		acquired: counter(MetricLockAcquired, "Number of locks acquired"),
		failed:   counter(MetricLockFailed, "Number of lock acquisitions that gave up"),
		released: counter(MetricLockReleased, "Number of locks released"),
		attempts: histogram(MetricLockAttempts, "Acquire attempts per Lock call",
			metrics.WithBuckets([]float64{1, 2, 3, 5, 10, 25, 50, 100, 150})),
		hold: histogram(MetricLockHoldDuration, "Time a lock was held by WithLock", metrics.WithUnit("s")),
	}
}
