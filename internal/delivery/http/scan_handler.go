package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
	"github.com/Yuichizx/devops-tools-hub/internal/validate"
)

// ScanHandler handles HTTP requests for repository scans.
type ScanHandler struct {
	submitUC  *usecase.SubmitScanUsecase
	getTaskUC *usecase.GetTaskUsecase
	logger    *zap.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(submitUC *usecase.SubmitScanUsecase, getTaskUC *usecase.GetTaskUsecase, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		submitUC:  submitUC,
		getTaskUC: getTaskUC,
		logger:    logger,
	}
}

// validationMessages are the client-facing texts for rejected submissions.
var validationMessages = map[error]string{
	domain.ErrInvalidRepoURL:    "Invalid repository URL.",
	domain.ErrInvalidBranch:     "Invalid branch name.",
	domain.ErrInvalidProjectKey: "Invalid project key.",
	domain.ErrInvalidClip:       "Invalid clip rectangle.",
}

// Submit handles POST /api/v1/scans. Both JSON and form bodies are accepted.
func (h *ScanHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	validate.Normalize(&req)
	if err := validate.Request(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessages[err]})
		return
	}

	resp, err := h.submitUC.Execute(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCredentialedURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrDispatchFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("Submit scan failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetByID handles GET /api/v1/scans/:id. The log body is only included with
// include_log=1.
func (h *ScanHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	includeLog := c.Query("include_log") == "1"

	view, err := h.getTaskUC.Execute(c.Request.Context(), id, includeLog)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid task ID"})
			return
		}
		h.logger.Error("Get task failed", zap.Error(err), zap.String("task_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, view)
}
