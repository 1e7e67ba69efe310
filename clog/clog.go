package clog

import (
	"fmt"
	"sync"
)

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用开发环境默认配置
// opts   - 函数式选项列表，用于命名空间、Context 字段等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)
	return newLogger(config, options)
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// Default 返回进程级默认 Logger（console 格式，info 级别，输出到 stdout）
//
// 组件在未通过 WithLogger 注入日志器时使用它。
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(&Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			defaultLogger = Discard()
			return
		}
		defaultLogger = l
	})
	return defaultLogger
}
