// Package durable 是一个进程内的 Durable Object 宿主。
//
// 它提供锁协议依赖的两项保证：
//   - 同一 ID 在进程内只有一个活跃实例，所有调用经过一个单槽输入门逐个执行；
//   - 每个实例拥有独立前缀的持久化键值存储。
//
// 调用方只能通过 Stub 访问实例：
//
//	ns, _ := durable.NewNamespace("lock", backend, func(st *durable.State) *LockObject {
//		return &LockObject{state: st}
//	})
//	stub := ns.Get(ns.IDFromName("A"))
//	err := stub.Call(ctx, func(ctx context.Context, obj *LockObject) error { ... })
package durable

import (
	"context"
	"sync"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/storage"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/google/uuid"
)

// Namespace 一类对象的集合，T 为对象类型
type Namespace[T any] struct {
	name       string
	backend    storage.Backend
	factory    func(*State) T
	serializer string
	logger     clog.Logger
	metrics    *nsMetrics

	mu        sync.Mutex
	instances map[uuid.UUID]*instance[T]
	closed    bool
	inflight  sync.WaitGroup
}

// NewNamespace 创建命名空间，backend 由调用方拥有
func NewNamespace[T any](name string, backend storage.Backend, factory func(*State) T, opts ...Option) (*Namespace[T], error) {
	if backend == nil {
		return nil, storage.ErrBackendNil
	}
	if factory == nil {
		return nil, ErrFactoryNil
	}
	if name == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "durable: namespace name is empty")
	}

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With(clog.String(LabelNamespace, name))

	return &Namespace[T]{
		name:       name,
		backend:    backend,
		factory:    factory,
		serializer: o.serializer,
		logger:     logger,
		metrics:    newNSMetrics(o.meter, logger),
		instances:  make(map[uuid.UUID]*instance[T]),
	}, nil
}

// Name 返回命名空间名
func (ns *Namespace[T]) Name() string {
	return ns.name
}

// IDFromName 由名字派生确定性的 ID，同一命名空间内同名总是得到同一对象
func (ns *Namespace[T]) IDFromName(name string) ID {
	return newNameID(ns.name, name)
}

// NewUniqueID 生成随机 ID
func (ns *Namespace[T]) NewUniqueID() ID {
	return newUniqueID()
}

// IDFromString 解析 ID.String() 的结果
func (ns *Namespace[T]) IDFromString(s string) (ID, error) {
	return parseID(s)
}

// Get 返回指向 id 的 Stub，不会创建实例
func (ns *Namespace[T]) Get(id ID) *Stub[T] {
	return &Stub[T]{ns: ns, id: id}
}

// Close 拒绝新调用并等待进行中的调用结束
func (ns *Namespace[T]) Close(ctx context.Context) error {
	ns.mu.Lock()
	if ns.closed {
		ns.mu.Unlock()
		return nil
	}
	ns.closed = true
	ns.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ns.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return xerrors.Wrap(ctx.Err(), "durable: waiting for in-flight calls")
	}

	ns.mu.Lock()
	n := len(ns.instances)
	ns.instances = make(map[uuid.UUID]*instance[T])
	ns.mu.Unlock()

	ns.metrics.instances.Set(ctx, 0, metrics.L(LabelNamespace, ns.name))
	ns.logger.Info("namespace closed", clog.Int("instances", n))
	return nil
}

// Instances 返回当前活跃实例数
func (ns *Namespace[T]) Instances() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return len(ns.instances)
}

// enter 登记一次调用并返回目标实例，调用方须在结束时执行 exit
func (ns *Namespace[T]) enter(ctx context.Context, id ID) (*instance[T], error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.closed {
		return nil, ErrNamespaceClosed
	}

	inst, ok := ns.instances[id.uuid]
	if !ok {
		inst = ns.newInstance(id)
		ns.instances[id.uuid] = inst
		ns.metrics.instances.Set(ctx, float64(len(ns.instances)), metrics.L(LabelNamespace, ns.name))
	}
	inst.refs++
	ns.inflight.Add(1)
	return inst, nil
}

// exit 结束一次调用。实例没有其他调用时立即移出，状态都在存储中，下次调用重建即可。
func (ns *Namespace[T]) exit(ctx context.Context, inst *instance[T]) {
	ns.mu.Lock()
	inst.refs--
	if inst.refs == 0 && ns.instances[inst.state.id.uuid] == inst {
		delete(ns.instances, inst.state.id.uuid)
		ns.metrics.instances.Set(ctx, float64(len(ns.instances)), metrics.L(LabelNamespace, ns.name))
	}
	ns.mu.Unlock()
	ns.inflight.Done()
}

func (ns *Namespace[T]) newInstance(id ID) *instance[T] {
	prefix := "do:" + ns.name + ":" + id.String() + ":"
	logger := ns.logger.With(clog.String("object_id", id.String()))
	if id.name != "" {
		logger = logger.With(clog.String("object_name", id.name))
	}

	return &instance[T]{
		gate: make(chan struct{}, 1),
		state: &State{
			id:     id,
			logger: logger,
		},
		backend: storage.Scoped(ns.backend, prefix),
	}
}
