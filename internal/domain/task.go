package domain

import (
	"time"
)

// TaskStatus represents the lifecycle state of a scan task.
type TaskStatus string

const (
	StatusQueued               TaskStatus = "Queued"
	StatusRunning              TaskStatus = "Running"
	StatusGeneratingScreenshot TaskStatus = "Generating Screenshot"
	StatusCompleted            TaskStatus = "Completed"
	StatusFailedQualityGate    TaskStatus = "Failed: Quality Gate"
	StatusFailedError          TaskStatus = "Failed: An error occurred"
	StatusFailedScreenshot     TaskStatus = "Failed: Screenshot Error"
)

// IsTerminal returns true if the status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailedQualityGate, StatusFailedError, StatusFailedScreenshot:
		return true
	}
	return false
}

// Task is the record of one scan submission, polled by clients.
type Task struct {
	ID             string          `json:"task_id"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         TaskStatus      `json:"status"`
	RepoURL        string          `json:"repo_url"`
	Branch         string          `json:"branch_name"`
	ProjectKey     string          `json:"project_key"`
	SonarURL       *string         `json:"sonar_url"`
	ScreenshotInfo *ScreenshotInfo `json:"screenshot_info"`
	Log            *string         `json:"log"`
}

// Clone returns a deep copy so callers never share mutable state with the store.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.SonarURL != nil {
		u := *t.SonarURL
		c.SonarURL = &u
	}
	if t.Log != nil {
		l := *t.Log
		c.Log = &l
	}
	if t.ScreenshotInfo != nil {
		info := *t.ScreenshotInfo
		if t.ScreenshotInfo.QualityGateStatus != nil {
			s := *t.ScreenshotInfo.QualityGateStatus
			info.QualityGateStatus = &s
		}
		c.ScreenshotInfo = &info
	}
	return &c
}

// SetLog replaces the diagnostic log of the task.
func (t *Task) SetLog(text string) {
	t.Log = &text
}

// ClipRect is a screenshot region in CSS pixels.
type ClipRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultClipRect frames the quality gate and measures panels of the dashboard.
var DefaultClipRect = ClipRect{X: 200, Y: 100, Width: 1500, Height: 840}

// ScanJob is the work order handed to a worker.
type ScanJob struct {
	TaskID        string
	RepoURL       string
	Branch        string
	ProjectKey    string
	Exclusions    string
	Inclusions    string
	IsolatedCache bool
	Clip          *ClipRect
}

// ScreenshotInfo describes a persisted dashboard screenshot.
type ScreenshotInfo struct {
	Filename           string  `json:"filename"`
	DisplayURL         string  `json:"display_url"`
	QualityGateUpdated bool    `json:"quality_gate_updated"`
	QualityGateStatus  *string `json:"quality_gate_status"`
	WaitedMs           int64   `json:"waited_ms"`
	FixedDelayMs       int64   `json:"fixed_delay_ms"`
}

// ScanOutcome tags a scan that produced a dashboard.
type ScanOutcome int

const (
	// OutcomeSuccess means the analysis passed.
	OutcomeSuccess ScanOutcome = iota
	// OutcomeQualityGateFailed means the analysis completed but the quality gate failed.
	OutcomeQualityGateFailed
)

func (o ScanOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeQualityGateFailed:
		return "quality_gate_failed"
	}
	return "unknown"
}

// ScanResult is returned by the scan orchestrator when the scanner produced a
// dashboard. Fatal outcomes are reported as errors instead.
type ScanResult struct {
	Outcome      ScanOutcome
	DashboardURL string
	Output       string
}

// SubmitRequest is an incoming scan submission.
type SubmitRequest struct {
	RepoURL    string    `json:"repo_url" form:"repo_url"`
	Branch     string    `json:"branch_name" form:"branch_name"`
	ProjectKey string    `json:"project_key" form:"project_key"`
	Exclusions string    `json:"sonar_exclusions" form:"sonar_exclusions"`
	Inclusions string    `json:"sonar_inclusions" form:"sonar_inclusions"`
	Clip       *ClipRect `json:"clip_rect,omitempty" form:"-"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
	RepoURL string `json:"repo_url"`
}
