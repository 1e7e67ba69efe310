package durable

import (
	"context"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
)

// Stub 指向某个对象的句柄，可安全并发使用
type Stub[T any] struct {
	ns *Namespace[T]
	id ID
}

// ID 返回目标对象 ID
func (s *Stub[T]) ID() ID {
	return s.id
}

// Call 在目标实例上执行 fn。
// 同一实例的调用逐个执行；等待期间 ctx 取消会直接返回 ctx.Err()。
func (s *Stub[T]) Call(ctx context.Context, fn func(ctx context.Context, obj T) error) (err error) {
	ns := s.ns
	inst, err := ns.enter(ctx, s.id)
	if err != nil {
		return err
	}
	defer ns.exit(ctx, inst)

	nsLabel := metrics.L(LabelNamespace, ns.name)
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		ns.metrics.calls.Inc(ctx, nsLabel, metrics.L(metrics.LabelOutcome, outcome))
	}()

	waitStart := time.Now()
	if err := inst.admit(ctx); err != nil {
		return err
	}
	defer inst.leave()
	ns.metrics.gateWait.Record(ctx, time.Since(waitStart).Seconds(), nsLabel)

	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			inst.state.logger.ErrorContext(ctx, "object call panicked", clog.Any("panic", r))
		}
	}()

	obj, err := inst.object(ns.factory, ns.serializer)
	if err != nil {
		return err
	}
	return fn(ctx, obj)
}

// CallWithResult 是带返回值的 Call
func CallWithResult[T, R any](ctx context.Context, s *Stub[T], fn func(ctx context.Context, obj T) (R, error)) (R, error) {
	var out R
	err := s.Call(ctx, func(ctx context.Context, obj T) error {
		var err error
		out, err = fn(ctx, obj)
		return err
	})
	return out, err
}
