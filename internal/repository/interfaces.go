package repository

import (
	"context"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

// TaskRepository defines the interface for task record storage.
// Implementations must be safe for concurrent use.
type TaskRepository interface {
	// Create inserts a new task record.
	Create(ctx context.Context, task *domain.Task) error

	// Get returns a snapshot of the task; mutating it does not affect the store.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// Update applies fn to the task atomically. Readers never observe a
	// partially applied fn. Finished tasks reject further updates.
	Update(ctx context.Context, id string, fn func(*domain.Task)) error

	// Len returns the number of stored tasks.
	Len() int
}

// Dispatcher hands scan jobs to the worker pool.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *domain.ScanJob) error
}

// Scanner clones a repository and runs the static-analysis scanner on it.
type Scanner interface {
	Run(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error)
}

// Screenshotter captures the project dashboard. A nil info with a nil error
// means the automation is not configured.
type Screenshotter interface {
	Capture(ctx context.Context, projectKey string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error)
}
