package metrics

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "dolock"
//	  version: "v0.1.0"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 Resource 的 service.name 属性
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 Resource 的 service.version 属性
	Version string `mapstructure:"version"`
}

// NewDevDefaultConfig 开发环境默认配置
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
	}
}
