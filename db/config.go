package db

import "time"

// Config 数据库组件配置
//
//	db:
//	  driver: "sqlite"
//	  auto_migrate: true
//	  slow_threshold: "200ms"
//	  seed:
//	    - name: "alice"
//	      email: "alice@example.com"
type Config struct {
	// Driver 使用的连接器 (sqlite | mysql，默认: sqlite)
	Driver string `mapstructure:"driver"`

	// AutoMigrate 启动时创建 user 表
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// SlowThreshold 慢查询阈值 (默认: 200ms)
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`

	// Silent 关闭 SQL 日志
	Silent bool `mapstructure:"silent"`

	// Seed 表为空时写入的初始数据
	Seed []SeedUser `mapstructure:"seed"`

	// Breaker 查询熔断配置
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// SeedUser 初始用户
type SeedUser struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// MaxRequests 半开状态允许通过的请求数 (默认: 1)
	MaxRequests uint32 `mapstructure:"max_requests"`

	// Interval 关闭状态下清零计数的周期，0 表示不清零 (默认: 60s)
	Interval time.Duration `mapstructure:"interval"`

	// Timeout 打开状态持续多久后进入半开 (默认: 30s)
	Timeout time.Duration `mapstructure:"timeout"`

	// ConsecutiveFailures 连续失败多少次后打开 (默认: 5)
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 1
	}
	if c.Breaker.Interval == 0 {
		c.Breaker.Interval = time.Minute
	}
	if c.Breaker.Timeout <= 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}
}
