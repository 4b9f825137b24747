package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/monitoring"
)

// HealthHandler reports liveness and readiness. A degraded dependency, such as an
// unreachable cache, still answers 200 because the catalog keeps serving from the database.
type HealthHandler struct {
	manager *monitoring.HealthManager
	now     func() time.Time
}

// NewHealthHandler constructs a HealthHandler over manager.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager, now: time.Now}
}

// Summary GET /health
func (h *HealthHandler) Summary(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Status != monitoring.StatusDown,
		"status":     report.Status,
		"checked_at": h.now().UTC(),
	})
}

// Live GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	h.write(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// Ready GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	h.write(c, h.manager.EvaluateReadiness(requestContext(c)))
}

func (h *HealthHandler) write(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Status != monitoring.StatusDown,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": h.now().UTC(),
	})
}

func healthStatusCode(report monitoring.HealthReport) int {
	if report.Status == monitoring.StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
