package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/pool"
	"github.com/Yuichizx/devops-tools-hub/internal/repository/memory"
	"github.com/Yuichizx/devops-tools-hub/internal/repository/mock"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
)

func newRequest() *domain.SubmitRequest {
	return &domain.SubmitRequest{
		RepoURL:    "https://github.com/acme/widgets",
		Branch:     "main",
		ProjectKey: "acme_widgets",
	}
}

func newQueuedTask(t *testing.T, store *memory.TaskStore) *domain.ScanJob {
	t.Helper()
	disp := &mock.Dispatcher{}
	submit := usecase.NewSubmitScanUsecase(store, disp, zap.NewNop())
	if _, err := submit.Execute(context.Background(), newRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return disp.Dispatched[0]
}

func getTask(t *testing.T, store *memory.TaskStore, id string) *domain.Task {
	t.Helper()
	task, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return task
}

// Test: submission stores a Queued task and dispatches an isolated job.
func TestSubmitScan_Success(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	disp := &mock.Dispatcher{}
	uc := usecase.NewSubmitScanUsecase(store, disp, zap.NewNop())

	req := newRequest()
	req.Exclusions = "docs/**"

	resp, err := uc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TaskID == "" || resp.RepoURL != req.RepoURL || resp.Message == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	task := getTask(t, store, resp.TaskID)
	if task.Status != domain.StatusQueued {
		t.Errorf("expected Queued, got %s", task.Status)
	}

	if len(disp.Dispatched) != 1 {
		t.Fatalf("expected 1 dispatched job, got %d", len(disp.Dispatched))
	}
	job := disp.Dispatched[0]
	if job.TaskID != resp.TaskID || !job.IsolatedCache || job.Exclusions != "docs/**" {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.Clip == nil || *job.Clip != domain.DefaultClipRect {
		t.Errorf("expected default clip, got %+v", job.Clip)
	}
}

// Test: ids are unique across submissions.
func TestSubmitScan_UniqueIDs(t *testing.T) {
	store := memory.NewTaskStore(1000, zap.NewNop())
	uc := usecase.NewSubmitScanUsecase(store, &mock.Dispatcher{}, zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		resp, err := uc.Execute(context.Background(), newRequest())
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if seen[resp.TaskID] {
			t.Fatalf("duplicate task id %s", resp.TaskID)
		}
		seen[resp.TaskID] = true
	}
}

// Test: a credentialed URL never reaches the store or the queue.
func TestSubmitScan_CredentialedURL(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	disp := &mock.Dispatcher{}
	uc := usecase.NewSubmitScanUsecase(store, disp, zap.NewNop())

	req := newRequest()
	req.RepoURL = "https://ghp_" + strings.Repeat("x", 36) + "@github.com/acme/widgets"

	_, err := uc.Execute(context.Background(), req)
	if !errors.Is(err, domain.ErrCredentialedURL) {
		t.Fatalf("expected ErrCredentialedURL, got %v", err)
	}
	if store.Len() != 0 || len(disp.Dispatched) != 0 {
		t.Error("rejected submission must not be stored or dispatched")
	}
}

// Test: a dispatch failure marks the task failed.
func TestSubmitScan_DispatchFailure(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	disp := &mock.Dispatcher{
		DispatchFn: func(ctx context.Context, job *domain.ScanJob) error {
			return errors.New("worker pool stopped")
		},
	}
	uc := usecase.NewSubmitScanUsecase(store, disp, zap.NewNop())

	_, err := uc.Execute(context.Background(), newRequest())
	if !errors.Is(err, domain.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
}

// Test: request fields are echoed unchanged at every read.
func TestGetTask_RoundTrip(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	job := newQueuedTask(t, store)
	get := usecase.NewGetTaskUsecase(store, 0, zap.NewNop())

	view, err := get.Execute(context.Background(), job.TaskID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != domain.StatusQueued {
		t.Errorf("expected Queued, got %s", view.Status)
	}
	if view.RepoURL != "https://github.com/acme/widgets" || view.Branch != "main" || view.ProjectKey != "acme_widgets" {
		t.Errorf("fields not echoed: %+v", view)
	}

	if _, err := get.Execute(context.Background(), "missing", false); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

// Test: the log body is withheld unless asked for, and truncated to the budget.
func TestGetTask_LogBudget(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	job := newQueuedTask(t, store)
	_ = store.Update(context.Background(), job.TaskID, func(task *domain.Task) {
		task.SetLog(strings.Repeat("x", 100))
	})

	get := usecase.NewGetTaskUsecase(store, 10, zap.NewNop())

	view, _ := get.Execute(context.Background(), job.TaskID, false)
	if !view.HasLog || view.LogSize != 100 || view.Log != nil {
		t.Errorf("expected log metadata only, got %+v", view)
	}

	view, _ = get.Execute(context.Background(), job.TaskID, true)
	if view.Log == nil || len(*view.Log) != 10 {
		t.Errorf("expected 10 byte log, got %v", view.Log)
	}
}

func runJob(t *testing.T, scanner *mock.Scanner, shots *mock.Screenshotter) *domain.Task {
	t.Helper()
	store := memory.NewTaskStore(10, zap.NewNop())
	job := newQueuedTask(t, store)

	uc := usecase.NewProcessScanUsecase(store, scanner, shots, zap.NewNop())
	_ = uc.Execute(context.Background(), job)
	return getTask(t, store, job.TaskID)
}

// Test: a successful scan and screenshot complete the task.
func TestProcessScan_Completed(t *testing.T) {
	task := runJob(t, &mock.Scanner{}, &mock.Screenshotter{})

	if task.Status != domain.StatusCompleted {
		t.Fatalf("expected Completed, got %s", task.Status)
	}
	if task.SonarURL == nil || *task.SonarURL != "https://sonar.example/dashboard?id=acme_widgets" {
		t.Errorf("unexpected sonar_url %v", task.SonarURL)
	}
	if task.ScreenshotInfo == nil {
		t.Error("expected screenshot info")
	}
}

// Test: a quality gate failure keeps its URL and still takes a screenshot.
func TestProcessScan_QualityGate(t *testing.T) {
	scanner := &mock.Scanner{
		RunFn: func(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
			return &domain.ScanResult{
				Outcome:      domain.OutcomeQualityGateFailed,
				DashboardURL: "https://sonar.example/dashboard?id=" + job.ProjectKey,
			}, nil
		},
	}
	shots := &mock.Screenshotter{}
	task := runJob(t, scanner, shots)

	if task.Status != domain.StatusFailedQualityGate {
		t.Fatalf("expected Failed: Quality Gate, got %s", task.Status)
	}
	if task.SonarURL == nil || *task.SonarURL != "https://sonar.example/dashboard?id=acme_widgets" {
		t.Errorf("unexpected sonar_url %v", task.SonarURL)
	}
	if task.Log == nil || !strings.Contains(*task.Log, "Quality Gate Failed") {
		t.Errorf("unexpected log %v", task.Log)
	}
	if shots.Calls != 1 || task.ScreenshotInfo == nil {
		t.Error("expected a screenshot for a quality gate failure")
	}
}

// Test: a quality gate failure stays a quality gate failure when the screenshot breaks.
func TestProcessScan_QualityGateWithScreenshotError(t *testing.T) {
	scanner := &mock.Scanner{
		RunFn: func(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
			return &domain.ScanResult{Outcome: domain.OutcomeQualityGateFailed, DashboardURL: "u"}, nil
		},
	}
	shots := &mock.Screenshotter{
		CaptureFn: func(ctx context.Context, key string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
			return nil, &domain.ScreenshotError{Stage: "login", Err: errors.New("timeout")}
		},
	}
	task := runJob(t, scanner, shots)

	if task.Status != domain.StatusFailedQualityGate {
		t.Fatalf("expected Failed: Quality Gate, got %s", task.Status)
	}
	if !strings.Contains(*task.Log, "Screenshot failed: screenshot login: timeout") {
		t.Errorf("unexpected log %q", *task.Log)
	}
}

// Test: scanner errors fail the task with the output in the log and no screenshot.
func TestProcessScan_ScannerError(t *testing.T) {
	scanner := &mock.Scanner{
		RunFn: func(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
			return nil, &domain.ScannerError{ExitCode: 3, Output: "ERROR: boom"}
		},
	}
	shots := &mock.Screenshotter{}
	task := runJob(t, scanner, shots)

	if task.Status != domain.StatusFailedError {
		t.Fatalf("expected Failed: An error occurred, got %s", task.Status)
	}
	if task.Log == nil || !strings.HasPrefix(*task.Log, "Error: ") || !strings.Contains(*task.Log, "ERROR: boom") {
		t.Errorf("unexpected log %v", task.Log)
	}
	if task.SonarURL != nil || shots.Calls != 0 {
		t.Error("no URL or screenshot expected after a fatal scan")
	}
}

// Test: a screenshot error after a clean scan keeps the sonar_url.
func TestProcessScan_ScreenshotError(t *testing.T) {
	shots := &mock.Screenshotter{
		CaptureFn: func(ctx context.Context, key string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
			return nil, &domain.ScreenshotError{Stage: "capture", Err: errors.New("target closed")}
		},
	}
	task := runJob(t, &mock.Scanner{}, shots)

	if task.Status != domain.StatusFailedScreenshot {
		t.Fatalf("expected Failed: Screenshot Error, got %s", task.Status)
	}
	if task.SonarURL == nil || *task.SonarURL != "https://sonar.example/dashboard?id=acme_widgets" {
		t.Errorf("sonar_url lost: %v", task.SonarURL)
	}
	if !strings.HasPrefix(*task.Log, "Scan success but screenshot failed: ") {
		t.Errorf("unexpected log %q", *task.Log)
	}
}

// Test: missing screenshot configuration is not an error.
func TestProcessScan_ScreenshotUnavailable(t *testing.T) {
	shots := &mock.Screenshotter{
		CaptureFn: func(ctx context.Context, key string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
			return nil, nil
		},
	}
	task := runJob(t, &mock.Scanner{}, shots)

	if task.Status != domain.StatusCompleted {
		t.Fatalf("expected Completed, got %s", task.Status)
	}
	if task.ScreenshotInfo != nil {
		t.Error("expected no screenshot info")
	}
}

// Test: a panicking scanner is recorded as a failure.
func TestProcessScan_Panic(t *testing.T) {
	scanner := &mock.Scanner{
		RunFn: func(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
			panic("nil map")
		},
	}
	task := runJob(t, scanner, &mock.Screenshotter{})

	if task.Status != domain.StatusFailedError {
		t.Fatalf("expected Failed: An error occurred, got %s", task.Status)
	}
	if !strings.Contains(*task.Log, "panic: nil map") {
		t.Errorf("unexpected log %q", *task.Log)
	}
}

// Test: a task evicted before its worker starts is skipped.
func TestProcessScan_EvictedTask(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	scanner := &mock.Scanner{}
	uc := usecase.NewProcessScanUsecase(store, scanner, &mock.Screenshotter{}, zap.NewNop())

	err := uc.Execute(context.Background(), &domain.ScanJob{TaskID: "gone", ProjectKey: "k"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(scanner.Jobs) != 0 {
		t.Error("scanner must not run for an evicted task")
	}
}

// Test: submit through a real worker pool and poll until the task completes.
func TestEndToEnd_Completed(t *testing.T) {
	store := memory.NewTaskStore(10, zap.NewNop())
	shots := &mock.Screenshotter{
		CaptureFn: func(ctx context.Context, key string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
			status := "Passed"
			return &domain.ScreenshotInfo{
				Filename:          key + "-1.png",
				DisplayURL:        "/screenshots/" + key + "-1.png",
				QualityGateStatus: &status,
			}, nil
		},
	}
	process := usecase.NewProcessScanUsecase(store, &mock.Scanner{}, shots, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	wp := pool.NewWorkerPool(ctx, 1, process, zap.NewNop())
	defer func() {
		cancel()
		wp.Stop()
	}()

	submit := usecase.NewSubmitScanUsecase(store, wp, zap.NewNop())
	get := usecase.NewGetTaskUsecase(store, 0, zap.NewNop())

	resp, err := submit.Execute(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var view *domain.TaskView
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err = get.Execute(context.Background(), resp.TaskID, false)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if view.Status.IsTerminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if view.Status != domain.StatusCompleted {
		t.Fatalf("expected Completed, got %s", view.Status)
	}
	if view.ScreenshotInfo == nil {
		t.Error("expected screenshot_info")
	}
	if view.SonarURL == nil || *view.SonarURL != "https://sonar.example/dashboard?id=acme_widgets" {
		t.Errorf("unexpected sonar_url %v", view.SonarURL)
	}
}
