package gitrefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a throwaway repository with one commit on branch "work"
// and an origin remote pointing at originURL.
func initRepo(t *testing.T, originURL string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.ReferenceName("refs/heads/work")},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{originURL},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# readme\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func TestLocalBranch(t *testing.T) {
	dir := initRepo(t, "https://github.com/acme/models.git")
	branch, err := LocalBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "work", branch)
}

func TestLocalBranchNotARepo(t *testing.T) {
	_, err := LocalBranch(t.TempDir())
	assert.Error(t, err)
}

func TestOriginURL(t *testing.T) {
	dir := initRepo(t, "git@github.com:acme/models.git")
	url, err := OriginURL(dir)
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/models.git", url)
}

func TestRepoFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://github.com/acme/models", "acme/models", true},
		{"https://github.com/acme/models.git", "acme/models", true},
		{"https://github.com/acme/models/tree/main", "acme/models", true},
		{"git@github.com:acme/models.git", "acme/models", true},
		{"https://example.com/acme/models", "", false},
		{"acme/models", "", false},
	}
	for _, tc := range cases {
		got, err := RepoFromURL(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestRepoFromInput(t *testing.T) {
	got, err := RepoFromInput("acme/models", "")
	require.NoError(t, err)
	assert.Equal(t, "acme/models", got)

	got, err = RepoFromInput("https://github.com/acme/models", "")
	require.NoError(t, err)
	assert.Equal(t, "acme/models", got)

	_, err = RepoFromInput("not a repo", "")
	assert.Error(t, err)
}

func TestRepoFromInputFallsBackToOrigin(t *testing.T) {
	dir := initRepo(t, "https://github.com/acme/models.git")
	got, err := RepoFromInput("", dir)
	require.NoError(t, err)
	assert.Equal(t, "acme/models", got)
}

func TestIsMainWebsite(t *testing.T) {
	dir := initRepo(t, "https://github.com/acme/models.git")

	assert.True(t, IsMainWebsite("work", "acme/models", dir))
	// Branch mismatch.
	assert.False(t, IsMainWebsite("main", "acme/models", dir))
	// Repository mismatch (fork preview).
	assert.False(t, IsMainWebsite("work", "fork/models", dir))
	// Not a repository at all.
	assert.False(t, IsMainWebsite("work", "acme/models", t.TempDir()))
}
