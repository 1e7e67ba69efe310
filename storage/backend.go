// Package storage 提供 Durable Object 的持久化键值存储。
//
// Backend 是原始字节层，只暴露 Get/Put/PutIfAbsent/Delete 四个操作；
// Storage 在其上叠加序列化，是对象代码实际使用的接口。
//
//	backend, err := storage.Open(cfg, storage.WithRedisConnector(redisConn))
//	scoped := storage.Scoped(backend, "do:lock:"+id+":")
//	st, _ := storage.New(scoped)
//	ok, err := st.PutValueIfAbsent(ctx, "A", 1)
package storage

import "context"

// Backend 持久化键值存储后端，实现必须并发安全
type Backend interface {
	// Get 读取 key，不存在时 found 为 false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put 无条件写入
	Put(ctx context.Context, key string, value []byte) error

	// PutIfAbsent 仅当 key 不存在时写入，返回是否写入成功。
	// 检查与写入是一个原子操作。
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// Delete 删除 key，key 不存在时不返回错误
	Delete(ctx context.Context, key string) error

	// Close 释放后端自身持有的资源，不关闭借用的连接器
	Close() error
}

func checkKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return nil
}
