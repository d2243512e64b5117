package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/metrics"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

const qualityGateMessage = "Quality Gate Failed. Please check the SonarQube dashboard."

// ProcessScanUsecase drives one task from Queued to a terminal status:
// scan, then screenshot whenever the scan produced a dashboard.
type ProcessScanUsecase struct {
	repo        repository.TaskRepository
	scanner     repository.Scanner
	screenshots repository.Screenshotter
	logger      *zap.Logger
}

// NewProcessScanUsecase creates a new ProcessScanUsecase.
func NewProcessScanUsecase(
	repo repository.TaskRepository,
	scanner repository.Scanner,
	screenshots repository.Screenshotter,
	logger *zap.Logger,
) *ProcessScanUsecase {
	return &ProcessScanUsecase{
		repo:        repo,
		scanner:     scanner,
		screenshots: screenshots,
		logger:      logger,
	}
}

// Execute processes one job. Every failure, panics included, ends up in the
// task's status and log. A task evicted from the store mid-flight is
// abandoned without error.
func (uc *ProcessScanUsecase) Execute(ctx context.Context, job *domain.ScanJob) (err error) {
	log := uc.logger.With(zap.String("task_id", job.TaskID), zap.String("project_key", job.ProjectKey))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error("Scan job panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			uc.finish(ctx, log, job.TaskID, func(t *domain.Task) {
				t.Status = domain.StatusFailedError
				t.SetLog(fmt.Sprintf("Error: %v\n\n%s", err, debug.Stack()))
			})
		}
	}()

	log.Info("Worker start", zap.String("branch", job.Branch))

	if err := uc.repo.Update(ctx, job.TaskID, func(t *domain.Task) {
		t.Status = domain.StatusRunning
	}); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			log.Warn("Task record evicted before start, skipping")
			return nil
		}
		return fmt.Errorf("mark running: %w", err)
	}

	result, err := uc.scanner.Run(ctx, job)
	if err != nil {
		log.Error("Scan failed", zap.Error(err))
		uc.finish(ctx, log, job.TaskID, func(t *domain.Task) {
			t.Status = domain.StatusFailedError
			t.SetLog("Error: " + err.Error())
		})
		return err
	}

	qualityGateFailed := result.Outcome == domain.OutcomeQualityGateFailed
	if qualityGateFailed {
		log.Warn("Quality gate failed")
	}

	if err := uc.repo.Update(ctx, job.TaskID, func(t *domain.Task) {
		url := result.DashboardURL
		t.SonarURL = &url
		t.Status = domain.StatusGeneratingScreenshot
		if qualityGateFailed {
			t.SetLog(qualityGateMessage)
		}
	}); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			log.Warn("Task record evicted during scan, abandoning result")
			return nil
		}
		return fmt.Errorf("record scan result: %w", err)
	}

	info, shotErr := uc.screenshots.Capture(ctx, job.ProjectKey, job.Clip)
	if shotErr != nil {
		log.Error("Screenshot failed", zap.Error(shotErr))
	} else if info == nil {
		log.Info("Screenshot automation unavailable, skipping")
	}

	uc.finish(ctx, log, job.TaskID, func(t *domain.Task) {
		switch {
		case shotErr != nil && qualityGateFailed:
			t.Status = domain.StatusFailedQualityGate
			t.SetLog(qualityGateMessage + "\n\nScreenshot failed: " + shotErr.Error())
		case shotErr != nil:
			t.Status = domain.StatusFailedScreenshot
			t.SetLog("Scan success but screenshot failed: " + shotErr.Error())
		case qualityGateFailed:
			t.ScreenshotInfo = info
			t.Status = domain.StatusFailedQualityGate
		default:
			t.ScreenshotInfo = info
			t.Status = domain.StatusCompleted
		}
	})
	return nil
}

// finish applies the terminal update and counts the outcome.
func (uc *ProcessScanUsecase) finish(ctx context.Context, log *zap.Logger, taskID string, fn func(*domain.Task)) {
	var status domain.TaskStatus
	err := uc.repo.Update(ctx, taskID, func(t *domain.Task) {
		fn(t)
		status = t.Status
	})
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		log.Warn("Task record evicted, result dropped")
		return
	case err != nil:
		log.Error("Failed to record final status", zap.Error(err))
		return
	}
	metrics.ScansTotal.WithLabelValues(string(status)).Inc()
	log.Info("Worker done", zap.String("status", string(status)))
}
