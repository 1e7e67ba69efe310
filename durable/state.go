package durable

import (
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/storage"
)

// State 对象实例的运行时上下文，由命名空间在首次调用时创建
type State struct {
	id      ID
	storage *storage.Storage
	logger  clog.Logger
}

// ID 返回对象 ID
func (s *State) ID() ID {
	return s.id
}

// Name 返回对象名，匿名对象为空
func (s *State) Name() string {
	return s.id.name
}

// Storage 返回实例私有的持久化存储
func (s *State) Storage() *storage.Storage {
	return s.storage
}

// Logger 返回带有对象 ID 的日志记录器
func (s *State) Logger() clog.Logger {
	return s.logger
}
