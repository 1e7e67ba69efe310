package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/genbit2025/durable-objects-test-v2/connector"
)

// NewMiniRedis 启动一个进程内 Redis，测试结束时关闭
func NewMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// NewRedisConnector 返回已连接到 miniredis 的连接器
func NewRedisConnector(t *testing.T) (connector.RedisConnector, *miniredis.Miniredis) {
	t.Helper()
	mr := NewMiniRedis(t)

	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: mr.Addr(),
	}, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn, mr
}
