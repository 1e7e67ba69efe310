package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdProbeKey = "health-check"

type etcdConnector struct {
	cfg      *EtcdConfig
	logger   clog.Logger
	attempts *attemptRecorder

	mu      sync.RWMutex
	client  *clientv3.Client
	healthy atomic.Bool
}

// NewEtcd 创建 Etcd 连接器
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid etcd config")
	}

	opt := newOptions(opts)
	return &etcdConnector{
		cfg:      cfg,
		logger:   opt.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		attempts: newAttemptRecorder(opt, "etcd", cfg.Name),
	}, nil
}

// Connect 建立连接
func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := c.dial(ctx)
	c.attempts.record(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.client = client
	c.healthy.Store(true)
	c.logger.Info("successfully connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) dial(ctx context.Context) (*clientv3.Client, error) {
	clientConfig := clientv3.Config{
		Endpoints:   c.cfg.Endpoints,
		DialTimeout: c.cfg.DialTimeout,
		Context:     context.WithoutCancel(ctx),
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		clientConfig.Username = c.cfg.Username
		clientConfig.Password = c.cfg.Password
	}

	client, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if _, err := client.Get(probeCtx, etcdProbeKey); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Close 关闭连接
func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}

	c.logger.Info("closing etcd connection")
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed successfully")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s]", c.cfg.Name)
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if _, err := client.Get(probeCtx, etcdProbeKey); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 Etcd 客户端
func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
