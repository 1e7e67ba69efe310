package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// checkTarget 可被探测的依赖
type checkTarget interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// healthz 逐个探测连接器，任一失败返回 503
func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, target := range h.checks {
		if err := target.HealthCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[target.Name()] = err.Error()
			continue
		}
		results[target.Name()] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}
