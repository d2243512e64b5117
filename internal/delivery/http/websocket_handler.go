package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
)

const streamInterval = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes task status to the client until it is terminal.
type WebSocketHandler struct {
	getTaskUC *usecase.GetTaskUsecase
	interval  time.Duration
	logger    *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(getTaskUC *usecase.GetTaskUsecase, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		getTaskUC: getTaskUC,
		interval:  streamInterval,
		logger:    logger,
	}
}

// Stream handles GET /api/v1/scans/:id/stream (WebSocket upgrade)
func (h *WebSocketHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.getTaskUC.Execute(ctx, id, false); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid task ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("task_id", id))

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		view, err := h.getTaskUC.Execute(ctx, id, false)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": "Invalid task ID"})
			return
		}

		if err := conn.WriteJSON(view); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		if view.Status.IsTerminal() {
			h.logger.Debug("Task reached terminal state, closing WebSocket", zap.String("task_id", id))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(view.Status)))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
