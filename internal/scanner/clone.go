package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

const netrcHint = "Check .netrc in HOME and its permissions (600)."

// cloneArgs builds the git argv. The "--" terminator keeps a hostile URL or
// branch from being parsed as an option; the empty credential.helper leaves
// ~/.netrc as the only credential source.
func cloneArgs(repoURL, branch, dest string) []string {
	return []string{
		"-c", "credential.helper=",
		"clone",
		"--quiet",
		"--depth", "1",
		"--branch", branch,
		"--",
		repoURL,
		dest,
	}
}

// gitEnv disables interactive prompting so a missing credential fails fast.
func gitEnv() []string {
	return append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
}

// cloneRepo shallow-clones repoURL into a fresh directory under workRoot and
// returns its path. On failure the directory is removed.
func (o *Orchestrator) cloneRepo(ctx context.Context, repoURL, branch string) (string, error) {
	dir, err := os.MkdirTemp(o.cfg.WorkRoot, "reposcan-*")
	if err != nil {
		return "", &domain.CloneError{Err: err, Output: "create work dir: " + err.Error()}
	}

	o.logger.Info("Cloning repository", zap.String("repo_url", repoURL), zap.String("dir", dir))

	cloneCtx, cancel := context.WithTimeout(ctx, o.cfg.CloneTimeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, o.cfg.GitPath, cloneArgs(repoURL, branch, dir)...)
	cmd.Env = gitEnv()
	cmd.WaitDelay = 5 * time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)

		cerr := &domain.CloneError{Output: strings.TrimSpace(out.String()), Err: err}
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			cerr.Hint = "git clone timed out after " + o.cfg.CloneTimeout.String() + "."
		} else if strings.Contains(cerr.Output, "could not read Username") {
			cerr.Hint = netrcHint
		}
		o.logger.Error("Git operation failed",
			zap.String("repo_url", repoURL),
			zap.String("detail", cerr.Error()),
		)
		return "", cerr
	}

	o.logger.Info("Clone successful", zap.String("branch", branch))
	return dir, nil
}
