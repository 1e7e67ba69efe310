// Package lockobject 实现基于持久化存储的建议锁对象。
//
// 每个锁 key 由一个独立的 Durable Object 实例服务。锁记录的存在即表示被持有，
// 不存在表示空闲，记录内容没有其他含义。
package lockobject

import (
	"context"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/durable"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

const (
	// heldSentinel 锁记录的值
	heldSentinel = 1

	// counterKey Increment 使用的记录
	counterKey = "value"

	helloFallback = "Hello, World!"
)

// Greeter 提供 SayHello 的问候语，通常由关系库查询得到
type Greeter interface {
	Greeting(ctx context.Context) (string, error)
}

// Object 锁对象，只能通过 durable.Stub 调用，调用天然串行
type Object struct {
	state   *durable.State
	cfg     Config
	greeter Greeter
	now     func() time.Time
}

func newObject(state *durable.State, cfg Config, greeter Greeter, now func() time.Time) *Object {
	return &Object{
		state:   state,
		cfg:     cfg,
		greeter: greeter,
		now:     now,
	}
}

// Acquire 尝试获取 key 的锁。
// 空闲时写入记录并返回 Granted=true，已被持有时返回 Granted=false。
// 检查与写入由存储后端的 PutIfAbsent 原子完成。
func (o *Object) Acquire(ctx context.Context, key string) (Grant, error) {
	if key == "" {
		return Grant{}, ErrKeyEmpty
	}

	ok, err := o.state.Storage().PutValueIfAbsent(ctx, key, heldSentinel)
	if err != nil {
		return Grant{}, xerrors.Wrapf(err, "lockobject: acquire %q", key)
	}

	grant := Grant{Granted: ok, At: o.now()}
	o.state.Logger().DebugContext(ctx, "acquire",
		clog.String("key", key),
		clog.Bool("granted", ok),
	)
	return grant, nil
}

// Release 无条件删除 key 的锁记录，记录不存在时同样返回 true
func (o *Object) Release(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	if err := o.state.Storage().Delete(ctx, key); err != nil {
		return false, xerrors.Wrapf(err, "lockobject: release %q", key)
	}

	o.state.Logger().DebugContext(ctx, "release", clog.String("key", key))
	return true, nil
}

// SayHello 返回问候语，并在返回前等待 HelloDelay
func (o *Object) SayHello(ctx context.Context) (string, error) {
	greeting := helloFallback
	if o.greeter != nil {
		g, err := o.greeter.Greeting(ctx)
		if err != nil {
			return "", xerrors.Wrap(err, "lockobject: greeting")
		}
		greeting = g
	}

	if err := sleep(ctx, o.cfg.HelloDelay); err != nil {
		return "", err
	}
	return greeting, nil
}

// Increment 将计数器加上 amount 并返回新值。
// 读改写只由实例门控串行，门控是进程内的：多个进程共享同一后端并发
// Increment 同一实例时可能丢失更新。需要跨进程精确计数时先用 Acquire 加锁。
func (o *Object) Increment(ctx context.Context, amount int64) (int64, error) {
	st := o.state.Storage()

	var value int64
	if _, err := st.GetValue(ctx, counterKey, &value); err != nil {
		return 0, xerrors.Wrap(err, "lockobject: read counter")
	}
	value += amount
	if err := st.PutValue(ctx, counterKey, value); err != nil {
		return 0, xerrors.Wrap(err, "lockobject: write counter")
	}
	return value, nil
}

// RunBiz 获取锁、执行 work、释放锁，返回获取锁的结果。
// 锁已被持有时不执行 work。work 为 nil 时等待 BizDuration。
func (o *Object) RunBiz(ctx context.Context, key string, work func(ctx context.Context) error) (Grant, error) {
	grant, err := o.Acquire(ctx, key)
	if err != nil || !grant.Granted {
		return grant, err
	}

	if work == nil {
		work = func(ctx context.Context) error {
			return sleep(ctx, o.cfg.BizDuration)
		}
	}
	workErr := work(ctx)

	// 业务被取消时仍然释放
	if _, err := o.Release(context.WithoutCancel(ctx), key); err != nil {
		return grant, xerrors.Combine(workErr, err)
	}
	return grant, workErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
