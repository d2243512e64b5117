package scanner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

const (
	DefaultCloneTimeout = 5 * time.Minute
	DefaultScanTimeout  = 30 * time.Minute
)

var _ repository.Scanner = (*Orchestrator)(nil)

// Config holds everything the orchestrator needs to clone and scan.
type Config struct {
	GitPath     string
	ScannerPath string

	HostURL           string
	Token             string
	DefaultExclusions string

	HeapMin          string
	HeapMax          string
	CacheRoot        string
	CPDMinimumTokens int
	Debug            bool

	NiceAdjustment int
	CPUAffinity    string

	CloneTimeout time.Duration
	ScanTimeout  time.Duration

	// WorkRoot is the parent of the temporary clone directories. Empty means
	// the OS temp dir.
	WorkRoot string
}

// Orchestrator clones a repository and runs sonar-scanner over it.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
}

// NewOrchestrator fills in defaults and returns a ready orchestrator.
func NewOrchestrator(cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.GitPath == "" {
		cfg.GitPath = "git"
	}
	if cfg.ScannerPath == "" {
		cfg.ScannerPath = "sonar-scanner"
	}
	if cfg.CloneTimeout <= 0 {
		cfg.CloneTimeout = DefaultCloneTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if _, err := parseAffinity(cfg.CPUAffinity); err != nil {
		logger.Warn("Ignoring CPU affinity", zap.Error(err))
	}
	return &Orchestrator{cfg: cfg, logger: logger}
}

// Run scans one job. A quality gate failure is a result, not an error; clone
// and scanner failures come back as *domain.CloneError and *domain.ScannerError.
func (o *Orchestrator) Run(ctx context.Context, job *domain.ScanJob) (*domain.ScanResult, error) {
	if err := CheckRepoURL(job.RepoURL); err != nil {
		return nil, err
	}

	srcDir, err := o.cloneRepo(ctx, job.RepoURL, job.Branch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(srcDir); err != nil {
			o.logger.Warn("Failed to remove clone directory", zap.String("dir", srcDir), zap.Error(err))
		}
	}()

	ec, err := BuildExecContext(o.cfg, job, srcDir, os.Environ())
	if err != nil {
		return nil, err
	}
	if ec.Coverage != "" {
		o.logger.Info("Coverage report detected", zap.String("language", ec.Coverage))
	}
	if err := os.MkdirAll(ec.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scanner cache %s: %w", ec.CacheDir, err)
	}

	o.logger.Info("Running sonar-scanner",
		zap.String("project_key", job.ProjectKey),
		zap.String("cache_dir", ec.CacheDir),
	)

	exitCode, output, err := o.runScanner(ctx, ec)
	if err != nil {
		return nil, err
	}

	url := DashboardURL(o.cfg.HostURL, job.ProjectKey)
	switch exitCode {
	case 0:
		o.logger.Info("Scan finished", zap.String("project_key", job.ProjectKey))
		return &domain.ScanResult{Outcome: domain.OutcomeSuccess, DashboardURL: url, Output: output}, nil
	case 2:
		o.logger.Warn("Quality gate failed", zap.String("project_key", job.ProjectKey))
		return &domain.ScanResult{Outcome: domain.OutcomeQualityGateFailed, DashboardURL: url, Output: output}, nil
	default:
		return nil, &domain.ScannerError{
			ExitCode: exitCode,
			Output:   output,
			Hint:     failureHint(output),
		}
	}
}

// DashboardURL returns the SonarQube dashboard address for a project.
func DashboardURL(host, projectKey string) string {
	return strings.TrimRight(host, "/") + "/dashboard?id=" + projectKey
}

// failureHint guesses the cause of a scanner failure from its output.
func failureHint(output string) string {
	switch {
	case strings.Contains(output, "Not authorized"), strings.Contains(output, "401"):
		return "Check SONAR_LOGIN_TOKEN and that it has permission to analyze this project."
	case strings.Contains(output, "UnknownHostException"),
		strings.Contains(output, "failed to connect"),
		strings.Contains(output, "Connection refused"):
		return "Check that SONAR_HOST_URL is reachable from the scanner host."
	default:
		return ""
	}
}
