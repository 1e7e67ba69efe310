package connector

import (
	"fmt"
	"net"
	"strconv"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 创建 MySQL 连接器
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid mysql config")
	}

	dsn := mysqlDSN(cfg)
	opt := newOptions(opts)
	return &gormConnector{
		kind:   "mysql",
		name:   cfg.Name,
		target: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		open: func() gorm.Dialector {
			return mysql.Open(dsn)
		},
		tune: func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
			return nil
		},
		logger:   opt.logger.With(clog.String("connector", "mysql"), clog.String("name", cfg.Name)),
		attempts: newAttemptRecorder(opt, "mysql", cfg.Name),
	}, nil
}

// mysqlDSN 优先使用 cfg.DSN，否则从各字段拼接
func mysqlDSN(cfg *MySQLConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), cfg.Database, cfg.Charset)
}
