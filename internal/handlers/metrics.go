package handlers

import (
	"github.com/equipdesk/backend/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics serves the Prometheus exposition of m.
// GET /metrics
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
