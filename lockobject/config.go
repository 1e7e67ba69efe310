package lockobject

import "time"

// DefaultNamespace 锁对象的命名空间名
const DefaultNamespace = "lock"

// Config 锁对象配置
//
//	object:
//	  namespace: "lock"
//	  hello_delay: "0s"
//	  biz_duration: "1s"
type Config struct {
	// Namespace 对象命名空间，同时决定存储前缀
	Namespace string `mapstructure:"namespace"`

	// HelloDelay SayHello 返回前的人为延迟
	HelloDelay time.Duration `mapstructure:"hello_delay"`

	// BizDuration RunBiz 未提供 work 时模拟业务的耗时
	BizDuration time.Duration `mapstructure:"biz_duration"`
}

func (c *Config) setDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.BizDuration < 0 {
		c.BizDuration = 0
	}
	if c.HelloDelay < 0 {
		c.HelloDelay = 0
	}
}
