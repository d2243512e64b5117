package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

// coverageReport is a known coverage file location, probed in order.
type coverageReport struct {
	lang  string
	param string
	path  string
}

var coverageReports = []coverageReport{
	{lang: "python", param: "-Dsonar.python.coverage.reportPaths=", path: "coverage.xml"},
	{lang: "java", param: "-Dsonar.coverage.jacoco.xmlReportPaths=", path: "target/site/jacoco/jacoco.xml"},
	{lang: "javascript", param: "-Dsonar.javascript.lcov.reportPaths=", path: "coverage/lcov.info"},
	{lang: "go", param: "-Dsonar.go.coverage.reportPaths=", path: "coverage.out"},
}

const javaBinaries = "target/classes"

// ExecContext is everything needed to start the scanner process.
type ExecContext struct {
	Path     string
	Args     []string
	Env      []string
	Dir      string
	CacheDir string
	Tuning   Tuning
	// Coverage is the language whose coverage report was attached, if any.
	Coverage string
}

// Tuning is the best-effort scheduling applied to the scanner process.
type Tuning struct {
	Nice int
	CPUs []int
}

// BuildExecContext assembles the scanner invocation for a cloned source tree.
// It only inspects srcDir for coverage reports; it does not touch the
// environment of the current process.
func BuildExecContext(cfg Config, job *domain.ScanJob, srcDir string, environ []string) (*ExecContext, error) {
	coverage, lang := detectCoverage(srcDir)

	args, err := scannerArgs(cfg, job, coverage)
	if err != nil {
		return nil, err
	}

	cacheDir := cacheDirFor(cfg, job)
	env, err := scannerEnv(cfg, environ, cacheDir)
	if err != nil {
		return nil, err
	}

	cpus, err := parseAffinity(cfg.CPUAffinity)
	if err != nil {
		// Reported by the caller; an unparsable affinity just disables pinning.
		cpus = nil
	}

	return &ExecContext{
		Path:     cfg.ScannerPath,
		Args:     args,
		Env:      env,
		Dir:      srcDir,
		CacheDir: cacheDir,
		Tuning:   Tuning{Nice: cfg.NiceAdjustment, CPUs: cpus},
		Coverage: lang,
	}, nil
}

// scannerArgs builds the scanner argv. The token is deliberately absent.
func scannerArgs(cfg Config, job *domain.ScanJob, coverage []string) ([]string, error) {
	host := strings.TrimSpace(cfg.HostURL)
	if host == "" {
		return nil, fmt.Errorf("%w: missing SONAR_HOST_URL", domain.ErrScannerNotConfigured)
	}

	var args []string
	if cfg.Debug {
		args = append(args, "-X", "-Dsonar.verbose=true")
	}
	args = append(args,
		"-Dsonar.projectKey="+job.ProjectKey,
		"-Dsonar.sources=.",
		"-Dsonar.host.url="+host,
	)

	exclusions := strings.TrimSpace(job.Exclusions)
	if exclusions == "" {
		exclusions = strings.TrimSpace(cfg.DefaultExclusions)
	}
	if exclusions != "" {
		args = append(args, "-Dsonar.exclusions="+exclusions)
	}
	if inclusions := strings.TrimSpace(job.Inclusions); inclusions != "" {
		args = append(args, "-Dsonar.inclusions="+inclusions)
	}

	args = append(args, coverage...)

	if cfg.CPDMinimumTokens > 0 {
		args = append(args, "-Dsonar.cpd.minimumTokens="+strconv.Itoa(cfg.CPDMinimumTokens))
	}
	return args, nil
}

// detectCoverage returns the arguments for the first coverage report found.
func detectCoverage(srcDir string) ([]string, string) {
	for _, r := range coverageReports {
		if !fileExists(filepath.Join(srcDir, filepath.FromSlash(r.path))) {
			continue
		}
		args := []string{r.param + r.path}
		if r.lang == "java" && fileExists(filepath.Join(srcDir, filepath.FromSlash(javaBinaries))) {
			args = append(args, "-Dsonar.java.binaries="+javaBinaries)
		}
		return args, r.lang
	}
	return nil, ""
}

// scannerEnv returns environ plus the scanner variables. Later entries win
// in os/exec, so inherited values are overridden.
func scannerEnv(cfg Config, environ []string, cacheDir string) ([]string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing SONAR_LOGIN_TOKEN", domain.ErrScannerNotConfigured)
	}

	env := make([]string, 0, len(environ)+3)
	env = append(env, environ...)
	env = append(env,
		"SONAR_SCANNER_OPTS="+strings.TrimSpace(cfg.HeapMin+" "+cfg.HeapMax),
		"SONAR_USER_HOME="+cacheDir,
		"SONAR_TOKEN="+token,
	)
	return env, nil
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// cacheDirFor returns the scanner cache directory for job. Isolated jobs get
// their own directory keyed by project so concurrent scans never share one.
func cacheDirFor(cfg Config, job *domain.ScanJob) string {
	root := cfg.CacheRoot
	if !job.IsolatedCache {
		return root
	}
	name := unsafePathChars.ReplaceAllString(job.ProjectKey, "_")
	if name == "" || strings.Trim(name, ".") == "" {
		name = "_"
	}
	dir := filepath.Join(root, name)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir
}

// parseAffinity parses a comma separated CPU list such as "0,2,3".
func parseAffinity(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid CPU_AFFINITY %q", s)
		}
		cpus = append(cpus, n)
	}
	return cpus, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
