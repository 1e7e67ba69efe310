package storage

import (
	"context"
	"strings"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"gorm.io/gorm"
)

// 支持的驱动
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverEtcd   = "etcd"
)

// Config 存储配置
//
//	storage:
//	  driver: "sqlite"
//	  serializer: "msgpack"
//	  table: "durable_kv"
type Config struct {
	Driver     string `mapstructure:"driver"`     // memory | redis | sqlite | mysql | etcd (默认: memory)
	Serializer string `mapstructure:"serializer"` // msgpack | json (默认: msgpack)
	Table      string `mapstructure:"table"`      // SQL 驱动使用的表名 (默认: durable_kv)
}

// Option 存储组件选项
type Option func(*options)

type options struct {
	logger clog.Logger
	redis  connector.RedisConnector
	gorm   connector.TypedConnector[*gorm.DB]
	etcd   connector.EtcdConnector
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("storage")
		}
	}
}

// WithRedisConnector 注入 Redis 连接器 (driver=redis)
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) { o.redis = conn }
}

// WithGormConnector 注入 SQLite 或 MySQL 连接器 (driver=sqlite|mysql)
func WithGormConnector(conn connector.TypedConnector[*gorm.DB]) Option {
	return func(o *options) { o.gorm = conn }
}

// WithEtcdConnector 注入 Etcd 连接器 (driver=etcd)
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) { o.etcd = conn }
}

// Open 按配置创建后端，连接器须已 Connect
func Open(ctx context.Context, cfg *Config, opts ...Option) (Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverMemory
	}

	var (
		backend Backend
		err     error
	)
	switch driver {
	case DriverMemory:
		backend = NewMemory()
	case DriverRedis:
		backend, err = NewRedis(o.redis)
	case DriverSQLite, DriverMySQL:
		backend, err = NewSQL(ctx, o.gorm, cfg.Table)
	case DriverEtcd:
		backend, err = NewEtcd(o.etcd)
	default:
		return nil, xerrors.Wrapf(ErrUnsupportedDriver, "%q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("storage backend ready", clog.String("driver", driver))
	return backend, nil
}
