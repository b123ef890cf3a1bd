package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports one dependency's health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a name and a ping function into a HealthChecker.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.CheckerName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler wires the probes.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, version: version, startAt: time.Now()}
}

// ComponentCheck is one dependency's probe outcome.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It confirms the process is up; it never
// touches external dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startAt).Round(time.Second).String(),
	})
}

// Readiness handles GET /readyz. Any failing dependency yields 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	healthy := true

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(checker HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := checker.Check(ctx)

			check := ComponentCheck{Status: "ok", Latency: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				check.Status = "unavailable"
				check.Error = err.Error()
			}

			mu.Lock()
			components[checker.Name()] = check
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not ready"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
