package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"hostelhub.backend/pkg/logger"
)

const (
	serviceName    = "hostelhub-backend"
	serviceVersion = "0.1.0"
	checkTimeout   = 2 * time.Second
)

// DependencyCheck reports whether a backing service answers
type DependencyCheck func(ctx context.Context) error

// HealthHandler reports liveness and the state of backing services
type HealthHandler struct {
	checks map[string]DependencyCheck
}

// NewHealthHandler creates a health handler probing checks by name
func NewHealthHandler(checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health answers 200 when every dependency is reachable and 503 otherwise
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.Warn(ctx, "Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"service":      serviceName,
		"version":      serviceVersion,
		"dependencies": deps,
	})
}
