package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
	"github.com/Yuichizx/devops-tools-hub/internal/scanner"
)

const queuedMessage = "Task queued successfully."

// SubmitScanUsecase records a scan task and hands it to the worker pool.
type SubmitScanUsecase struct {
	repo       repository.TaskRepository
	dispatcher repository.Dispatcher
	logger     *zap.Logger
}

// NewSubmitScanUsecase creates a new SubmitScanUsecase.
func NewSubmitScanUsecase(repo repository.TaskRepository, dispatcher repository.Dispatcher, logger *zap.Logger) *SubmitScanUsecase {
	return &SubmitScanUsecase{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Execute queues a scan of an already format-validated request. A URL that
// embeds credentials is rejected before anything is stored.
func (uc *SubmitScanUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	if err := scanner.CheckRepoURL(req.RepoURL); err != nil {
		return nil, err
	}

	taskID := uuid.NewString()
	task := &domain.Task{
		ID:         taskID,
		CreatedAt:  time.Now().UTC(),
		Status:     domain.StatusQueued,
		RepoURL:    req.RepoURL,
		Branch:     req.Branch,
		ProjectKey: req.ProjectKey,
	}
	if err := uc.repo.Create(ctx, task); err != nil {
		uc.logger.Error("Failed to create task", zap.Error(err), zap.String("task_id", taskID))
		return nil, fmt.Errorf("create task: %w", err)
	}

	clip := domain.DefaultClipRect
	if req.Clip != nil {
		clip = *req.Clip
	}
	job := &domain.ScanJob{
		TaskID:        taskID,
		RepoURL:       req.RepoURL,
		Branch:        req.Branch,
		ProjectKey:    req.ProjectKey,
		Exclusions:    req.Exclusions,
		Inclusions:    req.Inclusions,
		IsolatedCache: true,
		Clip:          &clip,
	}

	if err := uc.dispatcher.Dispatch(ctx, job); err != nil {
		uc.logger.Error("Failed to dispatch scan job", zap.Error(err), zap.String("task_id", taskID))
		_ = uc.repo.Update(ctx, taskID, func(t *domain.Task) {
			t.Status = domain.StatusFailedError
			t.SetLog("Error: " + err.Error())
		})
		return nil, domain.ErrDispatchFailed
	}

	uc.logger.Info("Task enqueued",
		zap.String("task_id", taskID),
		zap.String("repo_url", req.RepoURL),
		zap.String("branch", req.Branch),
	)

	return &domain.SubmitResponse{
		Message: queuedMessage,
		TaskID:  taskID,
		RepoURL: req.RepoURL,
	}, nil
}
