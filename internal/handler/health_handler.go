// Package handler provides HTTP request handlers for the application.
package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const healthCheckTimeout = 2 * time.Second

var errNotConfigured = errors.New("dependency not configured")

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	database Pinger
	// optional holds the dependencies that were enabled at startup.
	optional map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler instance. database may be nil
// in tests; optional dependencies are keyed by the name reported in probes.
func NewHealthHandler(database Pinger, optional map[string]Pinger) *HealthHandler {
	return &HealthHandler{database: database, optional: optional}
}

// Root handles GET /.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hello": "world"})
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// TestDB handles GET /test-db.
func (h *HealthHandler) TestDB(c *gin.Context) {
	status := "Connected"
	if err := h.ping(c.Request.Context(), h.database); err != nil {
		status = "Disconnected"
	}
	c.JSON(http.StatusOK, gin.H{"database": status})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{"time": time.Now()}
	ready := true

	if err := h.ping(ctx, h.database); err != nil {
		body["database"] = "unhealthy"
		body["error"] = err.Error()
		ready = false
	} else {
		body["database"] = "healthy"
	}

	names := make([]string, 0, len(h.optional))
	for name := range h.optional {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.ping(ctx, h.optional[name]); err != nil {
			body[name] = "unhealthy"
			ready = false
			continue
		}
		body[name] = "healthy"
	}

	if !ready {
		body["status"] = "DOWN"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "UP"
	c.JSON(http.StatusOK, body)
}

func (h *HealthHandler) ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return p.Ping(ctx)
}
