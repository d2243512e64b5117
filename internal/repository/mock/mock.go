package mock

import (
	"context"
	"sync"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

var (
	_ repository.Scanner       = (*Scanner)(nil)
	_ repository.Screenshotter = (*Screenshotter)(nil)
	_ repository.Dispatcher    = (*Dispatcher)(nil)
)

// Scanner is a mock scan orchestrator.
type Scanner struct {
	RunFn func(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error)

	mu   sync.Mutex
	Jobs []*domain.ScanJob
}

func (m *Scanner) Run(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
	m.mu.Lock()
	m.Jobs = append(m.Jobs, job)
	m.mu.Unlock()
	if m.RunFn != nil {
		return m.RunFn(ctx, job)
	}
	return &domain.ScanResult{
		Outcome:      domain.OutcomeSuccess,
		DashboardURL: "https://sonar.example/dashboard?id=" + job.ProjectKey,
	}, nil
}

// Screenshotter is a mock dashboard screenshotter.
type Screenshotter struct {
	CaptureFn func(ctx context.Context, projectKey string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error)

	mu    sync.Mutex
	Calls int
}

func (m *Screenshotter) Capture(ctx context.Context, projectKey string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.CaptureFn != nil {
		return m.CaptureFn(ctx, projectKey, clip)
	}
	return &domain.ScreenshotInfo{
		Filename:   projectKey + ".png",
		DisplayURL: "/screenshots/" + projectKey + ".png",
	}, nil
}

// Dispatcher records dispatched jobs without running them.
type Dispatcher struct {
	DispatchFn func(ctx context.Context, job *domain.ScanJob) error

	mu         sync.Mutex
	Dispatched []*domain.ScanJob
}

func (m *Dispatcher) Dispatch(ctx context.Context, job *domain.ScanJob) error {
	if m.DispatchFn != nil {
		return m.DispatchFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dispatched = append(m.Dispatched, job)
	return nil
}
