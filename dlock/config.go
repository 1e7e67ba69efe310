package dlock

import "time"

// Config 组件静态配置
//
//	lock:
//	  retry_interval: "200ms"
//	  max_attempts: 0
//	  acquire_timeout: "30s"
type Config struct {
	// RetryInterval 加锁被拒后的固定等待间隔 (默认: 200ms)
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// MaxAttempts 最大尝试次数，0 表示不限次数
	MaxAttempts int `mapstructure:"max_attempts"`

	// AcquireTimeout 单次 Lock 的总等待上限，0 表示只受 ctx 约束 (默认: 30s)
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	c := &Config{AcquireTimeout: 30 * time.Second}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.AcquireTimeout < 0 {
		c.AcquireTimeout = 0
	}
}
