// Package validate checks the format of scan submissions before they reach
// the task pipeline.
package validate

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

var (
	githubURL  = regexp.MustCompile(`^(https?://)?(www\.)?github\.com/[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+(\.git)?/?$`)
	branchName = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)
	projectKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Normalize trims surrounding whitespace from every text field of req.
func Normalize(req *domain.SubmitRequest) {
	req.RepoURL = strings.TrimSpace(req.RepoURL)
	req.Branch = strings.TrimSpace(req.Branch)
	req.ProjectKey = strings.TrimSpace(req.ProjectKey)
	req.Exclusions = strings.TrimSpace(req.Exclusions)
	req.Inclusions = strings.TrimSpace(req.Inclusions)
}

// Request checks repo URL, branch and project key, in that order.
func Request(req *domain.SubmitRequest) error {
	if !githubURL.MatchString(req.RepoURL) {
		return domain.ErrInvalidRepoURL
	}
	if !Branch(req.Branch) {
		return domain.ErrInvalidBranch
	}
	if !projectKey.MatchString(req.ProjectKey) {
		return domain.ErrInvalidProjectKey
	}
	if c := req.Clip; c != nil && (c.Width <= 0 || c.Height <= 0 || c.X < 0 || c.Y < 0) {
		return domain.ErrInvalidClip
	}
	return nil
}

// Branch reports whether name is an acceptable git branch name: allowed
// characters only, no leading "-" or "/", no trailing "/", no "//" or "..".
func Branch(name string) bool {
	if !branchName.MatchString(name) {
		return false
	}
	switch {
	case strings.HasPrefix(name, "-"), strings.HasPrefix(name, "/"):
		return false
	case strings.HasSuffix(name, "/"):
		return false
	case strings.Contains(name, "//"), strings.Contains(name, ".."):
		return false
	}
	return true
}
