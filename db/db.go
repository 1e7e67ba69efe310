// Package db 提供基于 GORM 的关系库组件，以及锁服务使用的用户查询。
//
// db 借用 connector 的连接，不负责连接的生命周期：
//
//	sqliteConn, _ := connector.NewSQLite(&cfg.SQLite, connector.WithLogger(logger))
//	defer sqliteConn.Close()
//	sqliteConn.Connect(ctx)
//
//	database, _ := db.New(sqliteConn, &db.Config{AutoMigrate: true}, db.WithLogger(logger))
//	users := db.NewUserRepository(database, &cfg.DB.Breaker, db.WithLogger(logger))
//	result, err := users.ListAll(ctx)
package db

import (
	"context"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"gorm.io/gorm"
)

// greetingSQL SayHello 使用的查询
const greetingSQL = "SELECT 'Hello, World!' AS greeting"

// DB 定义了数据库组件的核心能力
type DB interface {
	// DB 获取带 ctx 与日志的 *gorm.DB
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务操作
	// fn 中的 tx 对象仅在当前事务范围内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Greeting 执行问候查询
	Greeting(ctx context.Context) (string, error)

	// Close 关闭组件，连接由连接器负责
	Close() error
}

type database struct {
	client *gorm.DB
	cfg    Config
	logger clog.Logger
	meter  metrics.Meter
}

// New 创建数据库组件实例，conn 须已 Connect
func New(ctx context.Context, conn connector.TypedConnector[*gorm.DB], cfg *Config, opts ...Option) (DB, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, ErrConnectorNil
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &database{
		client: conn.GetClient().Session(&gorm.Session{
			Logger: newGormLogger(o.logger, c.Silent, c.SlowThreshold),
		}),
		cfg:    c,
		logger: o.logger,
		meter:  o.meter,
	}

	if c.AutoMigrate {
		if err := d.migrate(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) Greeting(ctx context.Context) (string, error) {
	var greeting string
	if err := d.DB(ctx).Raw(greetingSQL).Scan(&greeting).Error; err != nil {
		return "", xerrors.Wrap(err, "db: greeting")
	}
	return greeting, nil
}

func (d *database) Close() error {
	return nil
}

// migrate 建表，并在表为空时写入种子数据
func (d *database) migrate(ctx context.Context) error {
	if err := d.DB(ctx).AutoMigrate(&User{}); err != nil {
		return xerrors.Wrap(err, "db: migrate user table")
	}
	if len(d.cfg.Seed) == 0 {
		return nil
	}

	return d.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Count(&count).Error; err != nil {
			return xerrors.Wrap(err, "db: count users")
		}
		if count > 0 {
			return nil
		}

		users := make([]User, 0, len(d.cfg.Seed))
		for _, s := range d.cfg.Seed {
			users = append(users, User{Name: s.Name, Email: s.Email})
		}
		if err := tx.Create(&users).Error; err != nil {
			return xerrors.Wrap(err, "db: seed users")
		}
		d.logger.InfoContext(ctx, "seeded user table", clog.Int("rows", len(users)))
		return nil
	})
}
