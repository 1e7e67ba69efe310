package lockobject

import (
	"context"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/durable"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/storage"
)

// Option 客户端选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	greeter    Greeter
	serializer string
	now        func() time.Time
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
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

// WithGreeter 设置 SayHello 的问候语来源
func WithGreeter(g Greeter) Option {
	return func(o *options) {
		o.greeter = g
	}
}

// WithSerializer 设置锁记录的序列化方式
func WithSerializer(name string) Option {
	return func(o *options) {
		o.serializer = name
	}
}

// WithClock 替换时间来源，用于测试
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Client 通过 Stub 访问锁对象，每个 key 路由到以 key 命名的实例
type Client struct {
	ns *durable.Namespace[*Object]
}

// NewClient 在 backend 上创建锁对象命名空间
func NewClient(backend storage.Backend, cfg *Config, opts ...Option) (*Client, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	ns, err := durable.NewNamespace(c.Namespace, backend, func(st *durable.State) *Object {
		return newObject(st, c, o.greeter, o.now)
	},
		durable.WithLogger(o.logger),
		durable.WithMeter(o.meter),
		durable.WithSerializer(o.serializer),
	)
	if err != nil {
		return nil, err
	}
	return &Client{ns: ns}, nil
}

func (c *Client) stub(name string) *durable.Stub[*Object] {
	return c.ns.Get(c.ns.IDFromName(name))
}

// Acquire 在 key 对应的实例上尝试加锁
func (c *Client) Acquire(ctx context.Context, key string) (Grant, error) {
	if key == "" {
		return Grant{}, ErrKeyEmpty
	}
	return durable.CallWithResult(ctx, c.stub(key), func(ctx context.Context, obj *Object) (Grant, error) {
		return obj.Acquire(ctx, key)
	})
}

// Release 在 key 对应的实例上释放锁
func (c *Client) Release(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	return durable.CallWithResult(ctx, c.stub(key), func(ctx context.Context, obj *Object) (bool, error) {
		return obj.Release(ctx, key)
	})
}

// SayHello 调用 name 实例的 SayHello
func (c *Client) SayHello(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrKeyEmpty
	}
	return durable.CallWithResult(ctx, c.stub(name), func(ctx context.Context, obj *Object) (string, error) {
		return obj.SayHello(ctx)
	})
}

// Increment 调用 name 实例的计数器，只在本进程内串行，见 Object.Increment
func (c *Client) Increment(ctx context.Context, name string, amount int64) (int64, error) {
	if name == "" {
		return 0, ErrKeyEmpty
	}
	return durable.CallWithResult(ctx, c.stub(name), func(ctx context.Context, obj *Object) (int64, error) {
		return obj.Increment(ctx, amount)
	})
}

// RunBiz 在 key 实例内完成加锁、业务、解锁
func (c *Client) RunBiz(ctx context.Context, key string, work func(ctx context.Context) error) (Grant, error) {
	if key == "" {
		return Grant{}, ErrKeyEmpty
	}
	return durable.CallWithResult(ctx, c.stub(key), func(ctx context.Context, obj *Object) (Grant, error) {
		return obj.RunBiz(ctx, key, work)
	})
}

// Close 等待进行中的调用结束，不关闭 backend
func (c *Client) Close(ctx context.Context) error {
	return c.ns.Close(ctx)
}
