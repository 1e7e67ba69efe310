package connector

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建 SQLite 连接器
// 注意：实际连接在调用 Connect() 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	cfg.setDefaults()

	opt := newOptions(opts)
	return &gormConnector{
		kind:   "sqlite",
		name:   cfg.Name,
		target: cfg.Path,
		open: func() gorm.Dialector {
			return sqlite.Open(cfg.Path)
		},
		tune: func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			// SQLite 单写者，多连接只会带来 "database is locked"
			sqlDB.SetMaxOpenConns(1)
			return nil
		},
		logger:   opt.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
		attempts: newAttemptRecorder(opt, "sqlite", cfg.Name),
	}, nil
}
