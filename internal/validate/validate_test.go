package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

func TestBranch(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"main", true},
		{"feature/login-form", true},
		{"release-1.2.3", true},
		{"", false},
		{"-rf", false},
		{"/main", false},
		{"main/", false},
		{"a//b", false},
		{"a..b", false},
		{"main branch", false},
		{"main;rm", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, Branch(tt.name), "branch %q", tt.name)
	}
}

func TestRequest(t *testing.T) {
	valid := func() *domain.SubmitRequest {
		return &domain.SubmitRequest{
			RepoURL:    "https://github.com/acme/widgets",
			Branch:     "main",
			ProjectKey: "acme_widgets",
		}
	}

	assert.NoError(t, Request(valid()))

	for _, url := range []string{
		"github.com/acme/widgets.git",
		"http://www.github.com/acme/widgets/",
	} {
		req := valid()
		req.RepoURL = url
		assert.NoError(t, Request(req), url)
	}

	tests := []struct {
		name   string
		mutate func(*domain.SubmitRequest)
		want   error
	}{
		{"gitlab host", func(r *domain.SubmitRequest) { r.RepoURL = "https://gitlab.com/acme/widgets" }, domain.ErrInvalidRepoURL},
		{"extra path", func(r *domain.SubmitRequest) { r.RepoURL = "https://github.com/acme/widgets/tree/main" }, domain.ErrInvalidRepoURL},
		{"credentials", func(r *domain.SubmitRequest) { r.RepoURL = "https://x:y@github.com/acme/widgets" }, domain.ErrInvalidRepoURL},
		{"bad branch", func(r *domain.SubmitRequest) { r.Branch = "-x" }, domain.ErrInvalidBranch},
		{"empty key", func(r *domain.SubmitRequest) { r.ProjectKey = "" }, domain.ErrInvalidProjectKey},
		{"key with slash", func(r *domain.SubmitRequest) { r.ProjectKey = "a/b" }, domain.ErrInvalidProjectKey},
		{"zero clip", func(r *domain.SubmitRequest) { r.Clip = &domain.ClipRect{Width: 0, Height: 10} }, domain.ErrInvalidClip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			assert.ErrorIs(t, Request(req), tt.want)
		})
	}
}

func TestNormalize(t *testing.T) {
	req := &domain.SubmitRequest{RepoURL: " https://github.com/a/b ", Branch: "main\n", ProjectKey: "\tk "}
	Normalize(req)
	assert.Equal(t, "https://github.com/a/b", req.RepoURL)
	assert.Equal(t, "main", req.Branch)
	assert.Equal(t, "k", req.ProjectKey)
}
