package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueStats reports the live size of the task pipeline.
type QueueStats interface {
	Pending() int
}

// TaskCounter reports how many task records are held.
type TaskCounter interface {
	Len() int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	tasks  TaskCounter
	queue  QueueStats
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(tasks TaskCounter, queue QueueStats, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{tasks: tasks, queue: queue, logger: logger}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"tasks":       h.tasks.Len(),
		"queue_depth": h.queue.Pending(),
	})
}
