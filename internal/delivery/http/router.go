package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/delivery/http/middleware"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
)

const maxBodyBytes = 64 << 10

// RouterDeps carries everything the router wires into handlers.
type RouterDeps struct {
	SubmitUC  *usecase.SubmitScanUsecase
	GetTaskUC *usecase.GetTaskUsecase
	Tasks     TaskCounter
	Queue     QueueStats
	Logger    *zap.Logger

	RateLimitPerMin int
	MetricsEnabled  bool
	ScreenshotDir   string
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))

	if deps.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.Static("/screenshots", deps.ScreenshotDir)
	shotHandler := NewScreenshotHandler(deps.ScreenshotDir, deps.Logger)
	router.GET("/download/screenshots/:filename", shotHandler.Download)

	v1 := router.Group("/api/v1")
	{
		healthHandler := NewHealthHandler(deps.Tasks, deps.Queue, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		scanHandler := NewScanHandler(deps.SubmitUC, deps.GetTaskUC, deps.Logger)
		v1.POST("/scans",
			middleware.RateLimiter(deps.RateLimitPerMin),
			middleware.BodySizeLimit(maxBodyBytes),
			scanHandler.Submit,
		)
		v1.GET("/scans/:id", scanHandler.GetByID)

		wsHandler := NewWebSocketHandler(deps.GetTaskUC, deps.Logger)
		v1.GET("/scans/:id/stream", wsHandler.Stream)
	}

	return router
}
