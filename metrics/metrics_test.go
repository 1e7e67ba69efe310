package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsDiscard(t *testing.T) {
	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	c, err := m.Counter("noop_total", "noop")
	require.NoError(t, err)
	c.Inc(context.Background())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestMeterExposesPrometheus(t *testing.T) {
	ctx := context.Background()
	m, err := New(NewDevDefaultConfig("metrics-test"))
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	counter, err := m.Counter("test_requests_total", "测试计数器")
	require.NoError(t, err)
	counter.Inc(ctx, L("outcome", "success"))
	counter.Add(ctx, 2, L("outcome", "success"))
	counter.Add(ctx, -5, L("outcome", "success"))

	gauge, err := m.Gauge("test_inflight", "测试仪表盘")
	require.NoError(t, err)
	gauge.Inc(ctx)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := m.Histogram("test_duration_seconds", "测试直方图", WithUnit("s"), WithBuckets([]float64{0.1, 1}))
	require.NoError(t, err)
	hist.Record(ctx, 0.5)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `test_requests_total{`)
	assert.Contains(t, text, `outcome="success"`)
	assert.Contains(t, text, "test_inflight")
	assert.Contains(t, text, "test_duration_seconds_bucket")
}

func TestHTTPStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", HTTPStatusClass(200))
	assert.Equal(t, "4xx", HTTPStatusClass(404))
	assert.Equal(t, "5xx", HTTPStatusClass(503))
	assert.Equal(t, "unknown", HTTPStatusClass(0))
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(404))
	assert.Equal(t, OutcomeError, HTTPOutcome(500))
}
