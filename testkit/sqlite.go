package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/genbit2025/durable-objects-test-v2/connector"
)

// NewSQLiteConnector 返回已连接的内存 SQLite 连接器
// 每次调用使用独立的内存库，互不干扰
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(&connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: fmt.Sprintf("file:test_%s?mode=memory&cache=shared", NewID()),
	}, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create sqlite connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
