package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type captureCounter struct {
	records [][]Label
}

func (c *captureCounter) Inc(_ context.Context, labels ...Label) {
	copied := make([]Label, len(labels))
	copy(copied, labels)
	c.records = append(c.records, copied)
}

func (c *captureCounter) Add(ctx context.Context, _ float64, labels ...Label) {
	c.Inc(ctx, labels...)
}

type captureHistogram struct {
	records [][]Label
}

func (h *captureHistogram) Record(_ context.Context, _ float64, labels ...Label) {
	copied := make([]Label, len(labels))
	copy(copied, labels)
	h.records = append(h.records, copied)
}

func labelValue(labels []Label, key string) (string, bool) {
	for _, label := range labels {
		if label.Key == key {
			return label.Value, true
		}
	}
	return "", false
}

func newCaptureRouter() (*gin.Engine, *captureCounter, *captureHistogram) {
	gin.SetMode(gin.TestMode)

	counter := &captureCounter{}
	histogram := &captureHistogram{}
	httpMetrics := &HTTPServerMetrics{
		service:      "svc",
		requestTotal: counter,
		duration:     histogram,
	}

	router := gin.New()
	router.Use(GinHTTPMiddleware(httpMetrics))
	return router, counter, histogram
}

func TestGinHTTPMiddlewareUnknownRouteForUnmatchedPath(t *testing.T) {
	router, counter, _ := newCaptureRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/random-scan-value", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(counter.records) != 1 {
		t.Fatalf("counter records = %d, want 1", len(counter.records))
	}

	route, ok := labelValue(counter.records[0], LabelRoute)
	if !ok {
		t.Fatalf("missing %q label", LabelRoute)
	}
	if route != UnknownRoute {
		t.Fatalf("route label = %q, want %q", route, UnknownRoute)
	}
}

func TestGinHTTPMiddlewareUsesRouteTemplate(t *testing.T) {
	router, counter, histogram := newCaptureRouter()
	router.GET("/objects/:name", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/A", nil)
	router.ServeHTTP(w, req)

	if len(counter.records) != 1 || len(histogram.records) != 1 {
		t.Fatalf("records = %d/%d, want 1/1", len(counter.records), len(histogram.records))
	}

	labels := counter.records[0]
	if route, _ := labelValue(labels, LabelRoute); route != "/objects/:name" {
		t.Fatalf("route label = %q, want %q", route, "/objects/:name")
	}
	if class, _ := labelValue(labels, LabelStatusClass); class != "5xx" {
		t.Fatalf("status_class = %q, want 5xx", class)
	}
	if outcome, _ := labelValue(labels, LabelOutcome); outcome != OutcomeError {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeError)
	}
}

func TestGinHTTPMiddlewareNilMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinHTTPMiddleware(nil))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
