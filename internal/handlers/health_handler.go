package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck - проверка зависимости для /health
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
	stats  func() any
}

func NewHealthHandler(checks map[string]HealthCheck, stats func() any) *HealthHandler {
	return &HealthHandler{checks: checks, stats: stats}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	body := gin.H{
		"status":     "ok",
		"components": components,
		"time":       time.Now().UTC(),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.stats != nil {
		body["realtime"] = h.stats()
	}
	c.JSON(status, body)
}
