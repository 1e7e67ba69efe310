package connector

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisConfigValidation 测试 Redis 配置验证
func TestRedisConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *RedisConfig
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid config with defaults",
			cfg:     &RedisConfig{Addr: "localhost:6379"},
			wantErr: false,
		},
		{
			name:        "empty address should fail",
			cfg:         &RedisConfig{},
			wantErr:     true,
			errContains: "addr is required",
		},
		{
			name:        "negative DB should fail",
			cfg:         &RedisConfig{Addr: "localhost:6379", DB: -1},
			wantErr:     true,
			errContains: "non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.setDefaults()
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, xerrors.Is(err, ErrConfig))
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Greater(t, tt.cfg.PoolSize, 0)
		})
	}
}

func TestMySQLConfigValidation(t *testing.T) {
	cfg := &MySQLConfig{Host: "db", Username: "root", Database: "app"}
	cfg.setDefaults()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, "root:@tcp(db:3306)/app?charset=utf8mb4&parseTime=True&loc=UTC", mysqlDSN(cfg))

	dsnOnly := &MySQLConfig{DSN: "user:pw@tcp(x:1)/y"}
	require.NoError(t, dsnOnly.validate())
	assert.Equal(t, "user:pw@tcp(x:1)/y", mysqlDSN(dsnOnly))

	_, err := NewMySQL(&MySQLConfig{Host: "db"})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConfig))
}

func TestEtcdConfigValidation(t *testing.T) {
	_, err := NewEtcd(&EtcdConfig{})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConfig))

	conn, err := NewEtcd(&EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}})
	require.NoError(t, err)
	assert.Equal(t, "default", conn.Name())
	assert.Nil(t, conn.GetClient())
	assert.True(t, xerrors.Is(conn.HealthCheck(context.Background()), ErrClientNil))
}

func TestRedisConnectorLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	conn, err := NewRedis(&RedisConfig{Name: "lock", Addr: mr.Addr()}, WithLogger(clog.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "lock", conn.Name())
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())
	require.NoError(t, conn.GetClient().Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, "v", mustGet(t, mr, "k"))

	require.NoError(t, conn.HealthCheck(ctx))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsHealthy())
	assert.Nil(t, conn.GetClient())
	assert.True(t, xerrors.Is(conn.Connect(ctx), ErrClientNil))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestRedisConnectorUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	conn, err := NewRedis(&RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConnection))
	assert.False(t, conn.IsHealthy())
}

func TestSQLiteConnectorLifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLite(&SQLiteConfig{Path: "file:connector_lifecycle?mode=memory&cache=shared"})
	require.NoError(t, err)

	assert.Nil(t, conn.GetClient())
	assert.True(t, xerrors.Is(conn.HealthCheck(ctx), ErrClientNil))

	require.NoError(t, conn.Connect(ctx))
	first := conn.GetClient()
	require.NotNil(t, first)

	// 幂等
	require.NoError(t, conn.Connect(ctx))
	assert.Same(t, first, conn.GetClient())

	var one int
	require.NoError(t, first.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	require.NoError(t, conn.HealthCheck(ctx))
	assert.True(t, conn.IsHealthy())

	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
}

func TestSQLiteConnectorConcurrentConnect(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLite(&SQLiteConfig{Path: "file:connector_concurrent?mode=memory&cache=shared"})
	require.NoError(t, err)
	defer conn.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, conn.Connect(ctx))
		}()
	}
	wg.Wait()
	assert.NotNil(t, conn.GetClient())
}
