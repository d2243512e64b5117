package domain

import (
	"unicode/utf8"
)

// DefaultMaxLogBytes is the log budget returned to polling clients.
const DefaultMaxLogBytes = 50_000

// TaskView is the status record served to polling clients.
type TaskView struct {
	TaskID         string          `json:"task_id"`
	Status         TaskStatus      `json:"status"`
	RepoURL        string          `json:"repo_url"`
	Branch         string          `json:"branch_name"`
	ProjectKey     string          `json:"project_key"`
	SonarURL       *string         `json:"sonar_url"`
	ScreenshotInfo *ScreenshotInfo `json:"screenshot_info"`
	HasLog         bool            `json:"has_log"`
	LogSize        int             `json:"log_size"`
	Log            *string         `json:"log"`
}

// NewTaskView shapes a task for clients. The log body is only included when
// includeLog is set, and then cut to maxLogBytes.
func NewTaskView(t *Task, includeLog bool, maxLogBytes int) *TaskView {
	v := &TaskView{
		TaskID:     t.ID,
		Status:     t.Status,
		RepoURL:    t.RepoURL,
		Branch:     t.Branch,
		ProjectKey: t.ProjectKey,
	}
	if t.SonarURL != nil {
		u := *t.SonarURL
		v.SonarURL = &u
	}
	if t.ScreenshotInfo != nil && t.ScreenshotInfo.Filename != "" {
		v.ScreenshotInfo = t.Clone().ScreenshotInfo
	}

	if t.Log == nil || *t.Log == "" {
		return v
	}
	v.HasLog = true
	v.LogSize = len(*t.Log)
	if includeLog {
		snippet := TruncateLog(*t.Log, maxLogBytes)
		v.Log = &snippet
	}
	return v
}

// TruncateLog cuts s to at most maxBytes bytes without leaving a partial
// UTF-8 sequence at the end. A non-positive budget falls back to the default.
func TruncateLog(s string, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLogBytes
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := s[:maxBytes]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
