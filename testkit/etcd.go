package testkit

import (
	"context"
	"strings"
	"testing"

	"github.com/genbit2025/durable-objects-test-v2/connector"
)

// EtcdEndpointsEnv 指向真实 Etcd 集群的环境变量，逗号分隔
const EtcdEndpointsEnv = "DOLOCK_TEST_ETCD_ENDPOINTS"

// NewEtcdConnector 返回已连接的 Etcd 连接器
// 未设置 DOLOCK_TEST_ETCD_ENDPOINTS 时跳过测试
func NewEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	raw := getEnv(EtcdEndpointsEnv, "")
	if raw == "" {
		t.Skipf("%s not set, skipping etcd test", EtcdEndpointsEnv)
	}

	conn, err := connector.NewEtcd(&connector.EtcdConfig{
		Name:      "test-etcd",
		Endpoints: strings.Split(raw, ","),
	}, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create etcd connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to etcd: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
