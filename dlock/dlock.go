// Package dlock 是锁对象的调用方：反复调用 Acquire 直到成功，
// 两次尝试之间固定等待 RetryInterval。
//
// 与无限自旋不同，Lock 受三个边界约束：调用方 ctx、AcquireTimeout、MaxAttempts。
// 存储故障不会重试，立即返回。
//
//	locker, _ := dlock.New(lockClient, dlock.DefaultConfig(), dlock.WithLogger(logger))
//	grant, err := locker.WithLock(ctx, "A", func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
package dlock

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// Acquirer 锁对象的 RPC 面，由 lockobject.Client 实现
type Acquirer interface {
	Acquire(ctx context.Context, key string) (lockobject.Grant, error)
	Release(ctx context.Context, key string) (bool, error)
}

// Locker 定义了调用方加锁的行为
type Locker interface {
	// Lock 阻塞式加锁，被拒绝时按 RetryInterval 重试。
	// 超出 AcquireTimeout 或 MaxAttempts 返回 ErrAcquireTimeout；
	// ctx 取消返回 ctx.Err()；存储故障原样返回。
	Lock(ctx context.Context, key string) (lockobject.Grant, error)

	// TryLock 只尝试一次，锁被占用时返回 Granted=false 且 err 为 nil
	TryLock(ctx context.Context, key string) (lockobject.Grant, error)

	// Unlock 释放锁，即使 ctx 已取消也会执行
	Unlock(ctx context.Context, key string) error

	// WithLock 加锁、执行 fn、解锁，返回加锁结果
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) (lockobject.Grant, error)
}

type locker struct {
	acquirer Acquirer
	cfg      Config
	logger   clog.Logger
	metrics  *lockMetrics

	// 记录本 Locker 加锁成功的时间，用于统计持有时长
	mu       sync.Mutex
	heldFrom map[string]time.Time
}

// New 创建 Locker
func New(acquirer Acquirer, cfg *Config, opts ...Option) (Locker, error) {
	if acquirer == nil {
		return nil, ErrAcquirerNil
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	return &locker{
		acquirer: acquirer,
		cfg:      c,
		logger:   o.logger,
		metrics:  newLockMetrics(o.meter, o.logger),
		heldFrom: make(map[string]time.Time),
	}, nil
}

func (l *locker) Lock(ctx context.Context, key string) (lockobject.Grant, error) {
	if key == "" {
		return lockobject.Grant{}, lockobject.ErrKeyEmpty
	}

	retryCtx := ctx
	if l.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		retryCtx, cancel = context.WithTimeout(ctx, l.cfg.AcquireTimeout)
		defer cancel()
	}

	var (
		attempts uint
		last     lockobject.Grant
	)
	_, err := retry.NewWithData[lockobject.Grant](l.retryOptions(retryCtx, key)...).Do(func() (lockobject.Grant, error) {
		attempts++
		g, err := l.acquirer.Acquire(retryCtx, key)
		if err != nil {
			return g, err
		}
		last = g
		if !g.Granted {
			return g, errLockHeld
		}
		return g, nil
	})

	l.metrics.attempts.Record(ctx, float64(attempts))

	if err == nil {
		l.markHeld(key)
		l.metrics.acquired.Inc(ctx)
		l.logger.DebugContext(ctx, "lock acquired",
			clog.String("key", key),
			clog.Int("attempts", int(attempts)),
		)
		return last, nil
	}

	reason, err := l.classify(ctx, retryCtx, err)
	l.metrics.failed.Inc(ctx, metrics.L(LabelReason, reason))
	l.logger.WarnContext(ctx, "lock not acquired",
		clog.String("key", key),
		clog.Int("attempts", int(attempts)),
		clog.String(LabelReason, reason),
		clog.Error(err),
	)
	return last, err
}

func (l *locker) retryOptions(ctx context.Context, key string) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Delay(l.cfg.RetryInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		// 只重试"锁被占用"，存储故障直接返回
		retry.RetryIf(func(err error) bool {
			return xerrors.Is(err, errLockHeld)
		}),
		retry.OnRetry(func(n uint, err error) {
			l.logger.DebugContext(ctx, "lock held, retrying",
				clog.String("key", key),
				clog.Int("attempt", int(n)+1),
				clog.Duration("interval", l.cfg.RetryInterval),
			)
		}),
	}
	if l.cfg.MaxAttempts > 0 {
		opts = append(opts, retry.Attempts(uint(l.cfg.MaxAttempts)))
	} else {
		opts = append(opts, retry.UntilSucceeded())
	}
	return opts
}

// classify 把重试结束的原因映射为对外错误
func (l *locker) classify(parent, retryCtx context.Context, err error) (string, error) {
	switch {
	case parent.Err() != nil:
		return "canceled", parent.Err()
	case retryCtx.Err() != nil:
		return "timeout", xerrors.Wrapf(ErrAcquireTimeout, "after %s", l.cfg.AcquireTimeout)
	case xerrors.Is(err, errLockHeld):
		return "timeout", xerrors.Wrapf(ErrAcquireTimeout, "after %d attempts", l.cfg.MaxAttempts)
	default:
		return "storage", err
	}
}

func (l *locker) TryLock(ctx context.Context, key string) (lockobject.Grant, error) {
	if key == "" {
		return lockobject.Grant{}, lockobject.ErrKeyEmpty
	}
	g, err := l.acquirer.Acquire(ctx, key)
	if err != nil {
		l.metrics.failed.Inc(ctx, metrics.L(LabelReason, "storage"))
		return g, err
	}
	if g.Granted {
		l.markHeld(key)
		l.metrics.acquired.Inc(ctx)
	}
	return g, nil
}

func (l *locker) Unlock(ctx context.Context, key string) error {
	// 请求被取消时锁仍需释放
	ctx = context.WithoutCancel(ctx)

	if _, err := l.acquirer.Release(ctx, key); err != nil {
		l.logger.ErrorContext(ctx, "unlock failed", clog.String("key", key), clog.Error(err))
		return err
	}

	if held, ok := l.takeHeld(key); ok {
		l.metrics.hold.Record(ctx, held.Seconds())
	}
	l.metrics.released.Inc(ctx)
	l.logger.DebugContext(ctx, "lock released", clog.String("key", key))
	return nil
}

func (l *locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) (lockobject.Grant, error) {
	g, err := l.Lock(ctx, key)
	if err != nil {
		return g, err
	}

	fnErr := fn(ctx)
	if err := l.Unlock(ctx, key); err != nil {
		return g, xerrors.Combine(fnErr, err)
	}
	return g, fnErr
}

func (l *locker) markHeld(key string) {
	l.mu.Lock()
	l.heldFrom[key] = time.Now()
	l.mu.Unlock()
}

func (l *locker) takeHeld(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	from, ok := l.heldFrom[key]
	if !ok {
		return 0, false
	}
	delete(l.heldFrom, key)
	return time.Since(from), true
}
