package storage

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/genbit2025/durable-objects-test-v2/testkit"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactories 每个驱动一个构造函数，etcd 在未配置环境变量时跳过
func backendFactories() map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		DriverMemory: func(t *testing.T) Backend {
			return NewMemory()
		},
		DriverRedis: func(t *testing.T) Backend {
			conn, _ := testkit.NewRedisConnector(t)
			b, err := NewRedis(conn)
			require.NoError(t, err)
			return b
		},
		DriverSQLite: func(t *testing.T) Backend {
			b, err := NewSQL(context.Background(), testkit.NewSQLiteConnector(t), "")
			require.NoError(t, err)
			return b
		},
		DriverEtcd: func(t *testing.T) Backend {
			b, err := NewEtcd(testkit.NewEtcdConnector(t))
			require.NoError(t, err)
			return Scoped(b, "dolock-test-"+testkit.NewID()+"/")
		},
	}
}

func TestBackends(t *testing.T) {
	for name, factory := range backendFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			defer b.Close()

			_, found, err := b.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)

			ok, err := b.PutIfAbsent(ctx, "lock", []byte("1"))
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = b.PutIfAbsent(ctx, "lock", []byte("2"))
			require.NoError(t, err)
			assert.False(t, ok, "second PutIfAbsent must not overwrite")

			v, found, err := b.Get(ctx, "lock")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("1"), v)

			require.NoError(t, b.Put(ctx, "lock", []byte("3")))
			v, _, err = b.Get(ctx, "lock")
			require.NoError(t, err)
			assert.Equal(t, []byte("3"), v)

			require.NoError(t, b.Delete(ctx, "lock"))
			require.NoError(t, b.Delete(ctx, "lock"), "deleting an absent key is not an error")

			_, found, err = b.Get(ctx, "lock")
			require.NoError(t, err)
			assert.False(t, found)

			ok, err = b.PutIfAbsent(ctx, "lock", []byte("4"))
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = b.PutIfAbsent(ctx, "", []byte("x"))
			assert.True(t, xerrors.Is(err, ErrKeyEmpty))

			// key 是不透明字符串，空白也是合法 key
			ok, err = b.PutIfAbsent(ctx, " ", []byte("x"))
			require.NoError(t, err)
			assert.True(t, ok)
			require.NoError(t, b.Delete(ctx, " "))
		})
	}
}

func TestBackendsLongKeys(t *testing.T) {
	// 两个 key 共享 255 字节前缀，截断或前缀索引都会把它们混为一谈
	prefix := strings.Repeat("k", 255)
	keyA := prefix + "A" + strings.Repeat("x", 1024)
	keyB := prefix + "B"

	for name, factory := range backendFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			defer b.Close()

			ok, err := b.PutIfAbsent(ctx, keyA, []byte("a"))
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = b.PutIfAbsent(ctx, keyB, []byte("b"))
			require.NoError(t, err)
			assert.True(t, ok)

			v, found, err := b.Get(ctx, keyA)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("a"), v)

			require.NoError(t, b.Put(ctx, keyB, []byte("b2")))
			require.NoError(t, b.Delete(ctx, keyA))

			_, found, err = b.Get(ctx, keyA)
			require.NoError(t, err)
			assert.False(t, found)

			v, found, err = b.Get(ctx, keyB)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("b2"), v)
		})
	}
}

func TestSQLKeepsOriginalKey(t *testing.T) {
	ctx := context.Background()
	conn := testkit.NewSQLiteConnector(t)
	b, err := NewSQL(ctx, conn, "")
	require.NoError(t, err)

	key := "lock/" + strings.Repeat("u", 600)
	require.NoError(t, b.Put(ctx, key, []byte("1")))

	var rec kvRecord
	require.NoError(t, conn.GetClient().Table(DefaultTable).Where("kv_hash = ?", keyHash(key)).First(&rec).Error)
	assert.Equal(t, key, rec.Key)
	assert.Len(t, rec.Hash, 64)
}

func TestBackendsPutIfAbsentIsAtomic(t *testing.T) {
	for name, factory := range backendFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := b.PutIfAbsent(ctx, "contended", []byte("1"))
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()

	a := Scoped(inner, "a:")
	b := Scoped(inner, "b:")
	nested := Scoped(a, "x:")

	ok, err := a.PutIfAbsent(ctx, "k", []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.PutIfAbsent(ctx, "k", []byte("b"))
	require.NoError(t, err)
	assert.True(t, ok, "scopes must not collide")

	require.NoError(t, nested.Put(ctx, "k", []byte("n")))
	v, found, err := inner.Get(ctx, "a:x:k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("n"), v)

	require.NoError(t, a.Close())
	_, found, err = inner.Get(ctx, "a:k")
	require.NoError(t, err)
	assert.True(t, found, "closing a scope leaves the inner backend usable")

	assert.True(t, xerrors.Is(a.Delete(ctx, ""), ErrKeyEmpty))
}

func TestStorageValues(t *testing.T) {
	for _, codec := range []string{"", "json"} {
		t.Run("codec="+codec, func(t *testing.T) {
			ctx := context.Background()
			st, err := New(NewMemory(), codec)
			require.NoError(t, err)

			var n int64
			found, err := st.GetValue(ctx, "value", &n)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, st.PutValue(ctx, "value", int64(41)))
			found, err = st.GetValue(ctx, "value", &n)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, int64(41), n)

			ok, err := st.PutValueIfAbsent(ctx, "value", int64(0))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Delete(ctx, "value"))
			ok, err = st.PutValueIfAbsent(ctx, "value", int64(0))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil)
	assert.True(t, xerrors.Is(err, ErrBackendNil))

	_, err = New(NewMemory(), "xml")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &memoryBackend{}, b)

	_, err = Open(ctx, &Config{Driver: "cassandra"})
	assert.True(t, xerrors.Is(err, ErrUnsupportedDriver))

	_, err = Open(ctx, &Config{Driver: DriverRedis})
	assert.True(t, xerrors.Is(err, ErrConnectorNil))

	conn, _ := testkit.NewRedisConnector(t)
	b, err = Open(ctx, &Config{Driver: "Redis"}, WithRedisConnector(conn), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	assert.IsType(t, &redisBackend{}, b)

	b, err = Open(ctx, &Config{Driver: DriverSQLite, Table: "kv_open_test"}, WithGormConnector(testkit.NewSQLiteConnector(t)))
	require.NoError(t, err)
	assert.IsType(t, &sqlBackend{}, b)
}
