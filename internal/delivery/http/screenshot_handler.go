package http

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ScreenshotHandler serves saved dashboard screenshots as downloads.
type ScreenshotHandler struct {
	dir    string
	logger *zap.Logger
}

// NewScreenshotHandler creates a new ScreenshotHandler for files in dir.
func NewScreenshotHandler(dir string, logger *zap.Logger) *ScreenshotHandler {
	return &ScreenshotHandler{dir: dir, logger: logger}
}

// Download handles GET /download/screenshots/:filename
func (h *ScreenshotHandler) Download(c *gin.Context) {
	name := c.Param("filename")
	if name != filepath.Base(name) || filepath.Ext(name) != ".png" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(h.dir, name)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		h.logger.Warn("Screenshot not found", zap.String("path", path))
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found."})
		return
	}

	c.FileAttachment(path, name)
}
