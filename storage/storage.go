package storage

import (
	"context"

	"github.com/genbit2025/durable-objects-test-v2/storage/serializer"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// Storage 带序列化的键值存储，对象代码通过它读写自己的状态
type Storage struct {
	backend    Backend
	serializer serializer.Serializer
}

// New 创建 Storage，serializerName 为空时使用 msgpack
func New(backend Backend, serializerName ...string) (*Storage, error) {
	if backend == nil {
		return nil, ErrBackendNil
	}
	name := ""
	if len(serializerName) > 0 {
		name = serializerName[0]
	}
	s, err := serializer.New(name)
	if err != nil {
		return nil, err
	}
	return &Storage{backend: backend, serializer: s}, nil
}

// GetValue 读取 key 并解码到 dest，key 不存在时返回 false 且不修改 dest
func (s *Storage) GetValue(ctx context.Context, key string, dest any) (bool, error) {
	data, found, err := s.backend.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := s.serializer.Unmarshal(data, dest); err != nil {
		return false, xerrors.Wrapf(err, "storage: decode %q", key)
	}
	return true, nil
}

// PutValue 编码并写入
func (s *Storage) PutValue(ctx context.Context, key string, value any) error {
	data, err := s.serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrapf(err, "storage: encode %q", key)
	}
	return s.backend.Put(ctx, key, data)
}

// PutValueIfAbsent 仅当 key 不存在时写入
func (s *Storage) PutValueIfAbsent(ctx context.Context, key string, value any) (bool, error) {
	data, err := s.serializer.Marshal(value)
	if err != nil {
		return false, xerrors.Wrapf(err, "storage: encode %q", key)
	}
	return s.backend.PutIfAbsent(ctx, key, data)
}

// Delete 删除 key，不存在时视为成功
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Backend 返回底层字节后端
func (s *Storage) Backend() Backend {
	return s.backend
}
