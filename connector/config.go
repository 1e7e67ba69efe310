package connector

import (
	"time"

	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Name         string        `mapstructure:"name"`           // 连接器名称 (默认: "default")
	Addr         string        `mapstructure:"addr"`           // [必填] 地址，例如 127.0.0.1:6379
	Password     string        `mapstructure:"password"`       // 密码
	DB           int           `mapstructure:"db"`             // 数据库编号
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 拨号超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写超时 (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrap(ErrConfig, "redis db must be non-negative")
	}
	return nil
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// Path 数据库文件路径，":memory:" 或 "file::memory:?cache=shared" 表示内存库
	Path string `mapstructure:"path"`
}

func (c *SQLiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		c.Path = "file::memory:?cache=shared"
	}
}

// MySQLConfig MySQL 连接配置
type MySQLConfig struct {
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// DSN 完整连接串，提供时忽略 Host/Port 等字段
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认: 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"` // 默认: "utf8mb4"

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 默认: 10
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 默认: 100
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 默认: 1h
}

func (c *MySQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func (c *MySQLConfig) validate() error {
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return xerrors.Wrap(ErrConfig, "mysql host is required")
	}
	if c.Username == "" {
		return xerrors.Wrap(ErrConfig, "mysql username is required")
	}
	if c.Database == "" {
		return xerrors.Wrap(ErrConfig, "mysql database is required")
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	Name        string        `mapstructure:"name"`         // 连接器名称 (默认: "default")
	Endpoints   []string      `mapstructure:"endpoints"`    // [必填] 节点地址
	Username    string        `mapstructure:"username"`     // 用户名
	Password    string        `mapstructure:"password"`     // 密码
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // 拨号超时 (默认: 5s)
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	return nil
}
