package durable

import (
	"context"
	"fmt"

	"github.com/genbit2025/durable-objects-test-v2/storage"
)

// instance 一个活跃对象。gate 是容量为 1 的信号量，持有期间其他调用排队。
type instance[T any] struct {
	gate    chan struct{}
	state   *State
	backend storage.Backend

	// refs 已进入但尚未结束的调用数，由 Namespace.mu 保护
	refs int

	// 以下字段只在持有 gate 时访问
	ready bool
	obj   T
}

// admit 等待进入输入门，ctx 取消时放弃等待
func (i *instance[T]) admit(ctx context.Context) error {
	select {
	case i.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *instance[T]) leave() {
	<-i.gate
}

// object 首次调用时构造对象，须在持有 gate 时调用
func (i *instance[T]) object(factory func(*State) T, serializer string) (T, error) {
	if i.ready {
		return i.obj, nil
	}
	st, err := storage.New(i.backend, serializer)
	if err != nil {
		var zero T
		return zero, err
	}
	i.state.storage = st
	i.obj = factory(i.state)
	i.ready = true
	return i.obj, nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrObjectPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrObjectPanic, r)
}
