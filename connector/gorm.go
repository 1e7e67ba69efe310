package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormConnector 是 SQLite 与 MySQL 连接器的公共实现，
// 两者只在 Dialector 构造和连接池配置上有差异
type gormConnector struct {
	kind     string
	name     string
	target   string
	open     func() gorm.Dialector
	tune     func(db *gorm.DB) error
	logger   clog.Logger
	attempts *attemptRecorder

	mu      sync.RWMutex
	db      *gorm.DB
	healthy atomic.Bool
}

// Connect 建立连接
func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 幂等：如果已连接则直接返回
	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to "+c.kind, clog.String("target", c.target))

	db, err := c.connect(ctx)
	c.attempts.record(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to "+c.kind, clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("successfully connected to "+c.kind, clog.String("target", c.target))
	return nil
}

func (c *gormConnector) connect(ctx context.Context) (*gorm.DB, error) {
	// SQL 日志由 db 组件通过 Session 注入，这里保持静默
	db, err := gorm.Open(c.open(), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if c.tune != nil {
		if err := c.tune(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close 关闭连接
func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	c.logger.Info("closing " + c.kind + " connection")

	sqlDB, err := c.db.DB()
	if err != nil {
		c.logger.Error("failed to get db instance for closing", clog.Error(err))
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info(c.kind + " connection closed successfully")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *gormConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.kind, c.name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn(c.kind+" health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *gormConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *gormConnector) Name() string {
	return c.name
}

// GetClient 返回 GORM 客户端
func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
