package gateway

import "time"

// Config HTTP 入口配置
//
//	server:
//	  addr: ":8080"
//	  work_duration: "2s"
type Config struct {
	// Addr 监听地址 (默认: ":8080")
	Addr string `mapstructure:"addr"`

	// WorkDuration 持锁期间模拟业务的耗时 (默认: 2s)
	WorkDuration time.Duration `mapstructure:"work_duration"`

	// ReadHeaderTimeout 读取请求头超时 (默认: 5s)
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`

	// ShutdownTimeout 优雅关闭的等待上限 (默认: 10s)
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Mode gin 运行模式 (debug | release | test，默认: release)
	Mode string `mapstructure:"mode"`
}

// SetDefaults 填充默认值
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.WorkDuration < 0 {
		c.WorkDuration = 0
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}
