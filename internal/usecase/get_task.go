package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

// GetTaskUsecase handles fetching task status for polling clients.
type GetTaskUsecase struct {
	repo        repository.TaskRepository
	maxLogBytes int
	logger      *zap.Logger
}

// NewGetTaskUsecase creates a new GetTaskUsecase. maxLogBytes bounds the log
// returned when it is requested.
func NewGetTaskUsecase(repo repository.TaskRepository, maxLogBytes int, logger *zap.Logger) *GetTaskUsecase {
	if maxLogBytes <= 0 {
		maxLogBytes = domain.DefaultMaxLogBytes
	}
	return &GetTaskUsecase{
		repo:        repo,
		maxLogBytes: maxLogBytes,
		logger:      logger,
	}
}

// Execute returns the status view of a task.
func (uc *GetTaskUsecase) Execute(ctx context.Context, id string, includeLog bool) (*domain.TaskView, error) {
	task, err := uc.repo.Get(ctx, id)
	if err != nil {
		uc.logger.Debug("Task not found", zap.String("task_id", id), zap.Error(err))
		return nil, domain.ErrTaskNotFound
	}
	return domain.NewTaskView(task, includeLog, uc.maxLogBytes), nil
}
