package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTaskNotFound is returned when a task cannot be found by ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists is returned when a task ID is inserted twice.
	ErrTaskExists = errors.New("task already exists")

	// ErrTaskTerminal is returned when a finished task is mutated again.
	ErrTaskTerminal = errors.New("task already reached a terminal status")

	// ErrCredentialedURL is returned when a repository URL embeds credentials or tokens.
	ErrCredentialedURL = errors.New("repo_url contains credential/token; use a clean https URL and rely on .netrc")

	// ErrInvalidRepoURL is returned when the repository URL fails format validation.
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrInvalidBranch is returned when the branch name fails format validation.
	ErrInvalidBranch = errors.New("invalid branch name")

	// ErrInvalidProjectKey is returned when the project key fails format validation.
	ErrInvalidProjectKey = errors.New("invalid project key")

	// ErrInvalidClip is returned when a screenshot clip rectangle is empty or negative.
	ErrInvalidClip = errors.New("invalid clip rectangle")

	// ErrScannerNotConfigured is returned when SONAR_HOST_URL or SONAR_LOGIN_TOKEN is missing.
	ErrScannerNotConfigured = errors.New("scanner is not configured")

	// ErrDispatchFailed is returned when a job cannot be handed to the worker pool.
	ErrDispatchFailed = errors.New("failed to dispatch scan job")
)

// CloneError reports a failed repository clone.
type CloneError struct {
	Output string
	Hint   string
	Err    error
}

func (e *CloneError) Error() string {
	detail := strings.TrimSpace(e.Output)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = "unknown git error"
	}
	if e.Hint != "" {
		detail = detail + ". " + e.Hint
	}
	return "git operation failed: " + detail
}

func (e *CloneError) Unwrap() error { return e.Err }

// ScannerError reports a scanner run that ended with an exit code other than 0 or 2.
type ScannerError struct {
	ExitCode int
	Output   string
	Hint     string
	TimedOut bool
	Err      error
}

func (e *ScannerError) Error() string {
	var b strings.Builder
	switch {
	case e.TimedOut:
		b.WriteString("sonar-scanner timed out")
	case e.ExitCode < 0 && e.Err != nil:
		fmt.Fprintf(&b, "sonar-scanner could not run: %v", e.Err)
	default:
		fmt.Fprintf(&b, "sonar-scanner failed (exit %d)", e.ExitCode)
	}
	if e.Output != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Output)
	}
	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ScannerError) Unwrap() error { return e.Err }

// ScreenshotError reports a failure inside the dashboard browser session.
type ScreenshotError struct {
	Stage string
	Err   error
}

func (e *ScreenshotError) Error() string {
	return fmt.Sprintf("screenshot %s: %v", e.Stage, e.Err)
}

func (e *ScreenshotError) Unwrap() error { return e.Err }
