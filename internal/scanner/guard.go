package scanner

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

// tokenPatterns match GitHub token shapes that must never reach git argv.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
	regexp.MustCompile(`gho_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`ghu_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`ghs_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`ghr_[A-Za-z0-9]{20,}`),
}

// CheckRepoURL rejects repository URLs that carry basic-auth credentials or
// an embedded access token.
func CheckRepoURL(repoURL string) error {
	if strings.Contains(repoURL, "@") {
		return domain.ErrCredentialedURL
	}
	for _, re := range tokenPatterns {
		if re.MatchString(repoURL) {
			return domain.ErrCredentialedURL
		}
	}
	return nil
}
