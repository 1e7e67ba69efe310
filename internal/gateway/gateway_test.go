package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/db"
	"github.com/genbit2025/durable-objects-test-v2/dlock"
	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/storage"
	"github.com/genbit2025/durable-objects-test-v2/testkit"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeUsers struct {
	result *db.QueryResult
	err    error
	calls  int
}

func (f *fakeUsers) ListAll(ctx context.Context) (*db.QueryResult, error) {
	f.calls++
	return f.result, f.err
}

type fixture struct {
	handler *Handler
	client  *lockobject.Client
	users   *fakeUsers
	router  http.Handler
}

func newFixture(t *testing.T, lockCfg *dlock.Config, opts ...Option) *fixture {
	t.Helper()
	kit := testkit.NewKit(t)

	client, err := lockobject.NewClient(storage.NewMemory(), nil, lockobject.WithLogger(kit.Logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	if lockCfg == nil {
		lockCfg = &dlock.Config{RetryInterval: 10 * time.Millisecond, AcquireTimeout: time.Second}
	}
	locker, err := dlock.New(client, lockCfg, dlock.WithLogger(kit.Logger))
	require.NoError(t, err)

	users := &fakeUsers{result: &db.QueryResult{
		Success: true,
		Meta:    db.QueryMeta{Duration: 0.5, RowsRead: 1},
		Results: []db.Row{{"id": 1, "name": "alice", "email": "alice@example.com"}},
	}}

	opts = append([]Option{WithLogger(kit.Logger), WithMeter(kit.Meter)}, opts...)
	h, err := New(&Config{WorkDuration: 10 * time.Millisecond}, locker, client, users, opts...)
	require.NoError(t, err)

	return &fixture{handler: h, client: client, users: users, router: h.Router()}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestMissingUserID(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/", "/?userId=", "/?other=1"} {
		rec := f.do(t, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, UsageText, rec.Body.String(), target)
	}
	assert.Zero(t, f.users.calls)
}

func TestDemoRoutesMissingUserID(t *testing.T) {
	f := newFixture(t, nil)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/demo/hello"},
		{http.MethodPost, "/demo/increment"},
		{http.MethodPost, "/demo/biz?userId="},
	} {
		rec := f.do(t, tc.method, tc.target)
		assert.Equal(t, http.StatusOK, rec.Code, tc.target)
		assert.Equal(t, UsageText, rec.Body.String(), tc.target)
	}
}

func TestLockAndQuery(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/?userId=A")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "Durable Object 加锁标识: true  时间="), body)

	parts := strings.SplitN(strings.TrimPrefix(body, "Durable Object 加锁标识: true  时间="), "，数据=", 2)
	require.Len(t, parts, 2)

	_, err := time.Parse(lockobject.TimestampLayout, parts[0])
	assert.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(parts[1]), &data))
	assert.Equal(t, true, data["success"])
	assert.Len(t, data["results"], 1)
	assert.Equal(t, 1, f.users.calls)

	// 请求结束后锁已释放
	grant, err := f.client.Acquire(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, grant.Granted)
}

func TestLockAndQueryWhitespaceUserID(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/?userId=%20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Durable Object 加锁标识: true  时间="), rec.Body.String())
	assert.Equal(t, 1, f.users.calls)
}

func TestLockAndQueryAcquireTimeout(t *testing.T) {
	f := newFixture(t, &dlock.Config{RetryInterval: 10 * time.Millisecond, AcquireTimeout: 50 * time.Millisecond})

	grant, err := f.client.Acquire(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, grant.Granted)

	rec := f.do(t, http.MethodGet, "/?userId=A")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, textUnavailable, rec.Body.String())
	assert.Zero(t, f.users.calls)
}

func TestLockAndQueryUserFault(t *testing.T) {
	f := newFixture(t, nil)
	f.users.err = errors.New("no such table: user")

	rec := f.do(t, http.MethodGet, "/?userId=A")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, textInternal, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "no such table")
}

func TestFailLogsErrorCode(t *testing.T) {
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "info", Format: "json"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	f := newFixture(t, &dlock.Config{RetryInterval: 10 * time.Millisecond, AcquireTimeout: 50 * time.Millisecond},
		WithLogger(logger))

	grant, err := f.client.Acquire(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, grant.Granted)

	rec := f.do(t, http.MethodGet, "/?userId=A")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, buf.String(), `"code":"`+dlock.CodeAcquireTimeout+`"`)

	buf.Reset()
	f.users.err = db.ErrBreakerOpen
	rec = f.do(t, http.MethodGet, "/?userId=B")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"code":"`+db.CodeBreakerOpen+`"`)

	buf.Reset()
	f.users.err = errors.New("no such table: user")
	rec = f.do(t, http.MethodGet, "/?userId=C")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"code":"`+codeInternal+`"`)
}

func TestLockAndQueryWaitsForHolder(t *testing.T) {
	f := newFixture(t, nil)

	grant, err := f.client.Acquire(context.Background(), "B")
	require.NoError(t, err)
	require.True(t, grant.Granted)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = f.client.Release(context.Background(), "B")
	}()

	start := time.Now()
	rec := f.do(t, http.MethodGet, "/?userId=B")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDemoHello(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/demo/hello?userId=A")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, World!", rec.Body.String())
}

func TestDemoIncrement(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/demo/increment?userId=A")
	assert.Equal(t, "1", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/demo/increment?userId=A&amount=5")
	assert.Equal(t, "6", rec.Body.String())

	// 不同 userId 的计数互不影响
	rec = f.do(t, http.MethodPost, "/demo/increment?userId=B")
	assert.Equal(t, "1", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/demo/increment?userId=A&amount=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDemoBiz(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/demo/biz?userId=A")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Durable Object 加锁标识: true  时间="))

	grant, err := f.client.Acquire(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, grant.Granted)

	rec = f.do(t, http.MethodPost, "/demo/biz?userId=A")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Durable Object 加锁标识: false  时间="))
}

func TestHealthz(t *testing.T) {
	conn := testkit.NewSQLiteConnector(t)
	f := newFixture(t, nil, WithHealthChecks(conn))

	rec := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks[conn.Name()])

	require.NoError(t, conn.Close())
	rec = f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	f.do(t, http.MethodGet, "/?userId=A")
	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_server_requests_total")
}

func TestNewServer(t *testing.T) {
	f := newFixture(t, nil)

	srv := f.handler.NewServer()
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.NotNil(t, srv.Handler)
}
