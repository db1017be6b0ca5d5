package gitrefs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
)

const (
	githubURLPrefix = "https://github.com/"
	githubSSHPrefix = "git@github.com:"
)

var repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// LocalBranch returns the branch name currently checked out at repoPath.
// A detached HEAD yields an empty name and no error.
func LocalBranch(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD of %s: %w", repoPath, err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// OriginURL returns the URL of the origin remote of the checkout at repoPath.
func OriginURL(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("read origin remote of %s: %w", repoPath, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote of %s has no URL", repoPath)
	}
	return urls[0], nil
}

// RepoFromURL extracts OWNER/REPO from a GitHub https or ssh URL.
func RepoFromURL(repoURL string) (string, error) {
	for _, prefix := range []string{githubURLPrefix, githubSSHPrefix} {
		if !strings.HasPrefix(repoURL, prefix) {
			continue
		}
		remainder := strings.TrimPrefix(repoURL, prefix)
		parts := strings.Split(remainder, "/")
		if len(parts) < 2 {
			break
		}
		repo := strings.TrimSuffix(parts[0]+"/"+parts[1], ".git")
		return repo, nil
	}
	return "", fmt.Errorf("invalid GitHub repository URL %q", repoURL)
}

// RepoFromInput resolves the configured repository to OWNER/REPO form.
// Accepts a direct OWNER/REPO value, a GitHub https or ssh URL, or an empty
// input, which falls back to the origin remote of the checkout at repoPath.
func RepoFromInput(input, repoPath string) (string, error) {
	repo := strings.TrimSpace(input)
	if repo == "" {
		originURL, err := OriginURL(repoPath)
		if err != nil {
			return "", fmt.Errorf("no repository configured and none derivable: %w", err)
		}
		repo = strings.TrimSpace(originURL)
	}
	if strings.HasPrefix(repo, githubURLPrefix) || strings.HasPrefix(repo, githubSSHPrefix) {
		parsed, err := RepoFromURL(repo)
		if err != nil {
			return "", err
		}
		repo = parsed
	}
	if !repoNamePattern.MatchString(repo) {
		return "", fmt.Errorf("invalid GitHub repository %q", repo)
	}
	return repo, nil
}

// IsMainWebsite reports whether this build runs on the main website's branch
// of the configured repository itself, as opposed to a preview (fork or
// feature branch) build. Any failure to inspect the local checkout counts as
// a preview build.
func IsMainWebsite(mainBranch, repo, repoPath string) bool {
	localBranch, err := LocalBranch(repoPath)
	if err != nil {
		return false
	}
	originURL, err := OriginURL(repoPath)
	if err != nil {
		return false
	}
	originRepo, err := RepoFromURL(strings.TrimSpace(originURL))
	if err != nil {
		return false
	}
	return mainBranch == localBranch && repo == originRepo
}
