package bootstrap

import (
	"context"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/config"
	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/db"
	"github.com/genbit2025/durable-objects-test-v2/dlock"
	"github.com/genbit2025/durable-objects-test-v2/internal/gateway"
	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/storage"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// ServiceName 服务名，用于日志命名空间与指标资源
const ServiceName = "dolock"

// AppConfig 应用配置，对应 configs/config.yaml
type AppConfig struct {
	Server  gateway.Config         `mapstructure:"server"`
	Clog    clog.Config            `mapstructure:"clog"`
	Metrics metrics.Config         `mapstructure:"metrics"`
	Storage storage.Config         `mapstructure:"storage"`
	Redis   connector.RedisConfig  `mapstructure:"redis"`
	SQLite  connector.SQLiteConfig `mapstructure:"sqlite"`
	MySQL   connector.MySQLConfig  `mapstructure:"mysql"`
	Etcd    connector.EtcdConfig   `mapstructure:"etcd"`
	Lock    dlock.Config           `mapstructure:"lock"`
	Object  lockobject.Config      `mapstructure:"object"`
	DB      db.Config              `mapstructure:"db"`

	// loader 来自 LoadConfig，New 通过它跟随配置文件调整日志级别
	loader config.Loader
}

// DefaultConfig 不依赖任何外部服务即可运行的配置：
// 内存存储、内存 SQLite、开启指标
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: gateway.Config{
			Addr:         ":8080",
			WorkDuration: 2 * time.Second,
		},
		Clog:    *clog.NewProdDefaultConfig(""),
		Metrics: *metrics.NewDevDefaultConfig(ServiceName),
		Storage: storage.Config{Driver: storage.DriverMemory},
		SQLite:  connector.SQLiteConfig{Name: "main"},
		Lock:    *dlock.DefaultConfig(),
		Object:  lockobject.Config{Namespace: lockobject.DefaultNamespace},
		DB: db.Config{
			Driver:      storage.DriverSQLite,
			AutoMigrate: true,
		},
	}
}

// LoadConfig 在默认值之上叠加配置文件与 DOLOCK_ 环境变量。
// 找不到任何配置时记录警告并使用默认值。
// 由此得到的配置交给 New 后，配置文件中 clog.level 的修改会即时生效。
func LoadConfig(ctx context.Context, logger clog.Logger, opts ...config.Option) (*AppConfig, error) {
	cfg := DefaultConfig()
	if logger == nil {
		logger = clog.Discard()
	}

	opts = append([]config.Option{config.WithLogger(logger)}, opts...)
	loader, err := config.Load(ctx, opts...)
	if err != nil {
		if xerrors.Is(err, config.ErrValidationFailed) {
			logger.WarnContext(ctx, "configuration is empty, using defaults")
			return cfg, nil
		}
		return nil, xerrors.Wrap(err, "load config")
	}

	if err := loader.Unmarshal(cfg); err != nil {
		return nil, xerrors.Wrap(err, "unmarshal config")
	}
	cfg.loader = loader
	return cfg, nil
}
