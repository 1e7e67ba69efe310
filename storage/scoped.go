package storage

import "context"

type scopedBackend struct {
	inner  Backend
	prefix string
}

// Scoped 为所有 key 加上前缀，用于把同一后端划分给多个对象实例。
// 返回值的 Close 不会关闭 inner。
func Scoped(inner Backend, prefix string) Backend {
	if s, ok := inner.(*scopedBackend); ok {
		return &scopedBackend{inner: s.inner, prefix: s.prefix + prefix}
	}
	return &scopedBackend{inner: inner, prefix: prefix}
}

func (s *scopedBackend) key(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return s.prefix + key, nil
}

func (s *scopedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, false, err
	}
	return s.inner.Get(ctx, k)
}

func (s *scopedBackend) Put(ctx context.Context, key string, value []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, k, value)
}

func (s *scopedBackend) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	k, err := s.key(key)
	if err != nil {
		return false, err
	}
	return s.inner.PutIfAbsent(ctx, k, value)
}

func (s *scopedBackend) Delete(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.inner.Delete(ctx, k)
}

func (s *scopedBackend) Close() error {
	return nil
}
