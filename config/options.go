package config

import (
	"strings"

	"github.com/genbit2025/durable-objects-test-v2/clog"
)

// Option 配置选项模式
type Option func(*Options)

// Options 加载器选项
type Options struct {
	Name      string   // 配置文件名称（不含扩展名）
	Paths     []string // 配置文件搜索路径
	FileType  string   // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string   // 环境变量前缀
	Logger    clog.Logger
}

func defaultOptions() *Options {
	return &Options{
		Name:      "config",
		Paths:     []string{".", "./configs"},
		FileType:  "yaml",
		EnvPrefix: "DOLOCK",
	}
}

// normalize 补齐被选项清空的字段
func (o *Options) normalize() {
	if o.Name == "" {
		o.Name = "config"
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{"."}
	}
	if o.FileType == "" {
		o.FileType = "yaml"
	}
	if o.EnvPrefix == "" {
		o.EnvPrefix = "DOLOCK"
	}
	o.EnvPrefix = strings.ToUpper(o.EnvPrefix)
	if o.Logger == nil {
		o.Logger = clog.Default()
	}
	o.Logger = o.Logger.WithNamespace("config")
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfigPath 添加配置文件搜索路径
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.Paths = append(o.Paths, path)
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = paths
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *Options) {
		o.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithLogger 设置加载过程的日志器
func WithLogger(l clog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
