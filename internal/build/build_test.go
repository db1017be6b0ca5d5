package build

import (
	"context"
	"errors"
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

	"git.home.luguber.info/inful/stubdocs/internal/config"
	"git.home.luguber.info/inful/stubdocs/internal/forge"
	"git.home.luguber.info/inful/stubdocs/internal/observability"
)

// offlineForge fails every remote call; builds under test must not need one.
type offlineForge struct{}

func (offlineForge) DirEntriesBatch(context.Context, string, []forge.TreeQuery) (map[string][]forge.DirEntry, error) {
	return nil, errors.New("offline")
}

func (offlineForge) RawContent(context.Context, string, string, string, string) (string, error) {
	return "", errors.New("offline")
}

func (offlineForge) Classify(_ context.Context, err error) error { return err }

func (offlineForge) DefaultBranch(context.Context, string) (string, error) {
	return "", errors.New("offline")
}

func initWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.ReferenceName("refs/heads/work")},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/models.git"},
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

// A local-only build writes the stub to the output directory without any
// remote traffic.
func TestRunLocalOnly(t *testing.T) {
	workdir := initWorkdir(t)

	empty := ""
	cfg := &config.Config{
		Repo:      "acme/models",
		Main:      config.MainWebsite{Branch: "work", Pattern: &empty},
		Preview:   config.PreviewWebsite{Pattern: &empty},
		LocalStub: true,
		StubsDir:  filepath.Join(workdir, "documentation"),
		SiteDir:   filepath.Join(t.TempDir(), "site"),
	}
	require.NoError(t, cfg.Normalize())
	require.NoError(t, os.MkdirAll(cfg.StubsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StubsDir, "guide.md"), []byte("# Guide\n\nbody\n"), 0o644))

	runner := NewRunner(cfg, offlineForge{}, observability.NewMetrics(), workdir)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.BuildID)
	assert.Equal(t, 1, result.Files)
	assert.Equal(t, filepath.Join(cfg.StubsDir, "guide.md"), result.LocalStubPath)

	written, err := os.ReadFile(filepath.Join(cfg.SiteDir, "configurations", "guide", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\nbody\n", string(written))
}

// A rebuild in the same process picks up edits to the local stub.
func TestRunPicksUpLocalEdits(t *testing.T) {
	workdir := initWorkdir(t)

	empty := ""
	cfg := &config.Config{
		Repo:      "acme/models",
		Main:      config.MainWebsite{Branch: "work", Pattern: &empty},
		Preview:   config.PreviewWebsite{Pattern: &empty},
		LocalStub: true,
		StubsDir:  filepath.Join(workdir, "documentation"),
		SiteDir:   filepath.Join(t.TempDir(), "site"),
	}
	require.NoError(t, cfg.Normalize())
	require.NoError(t, os.MkdirAll(cfg.StubsDir, 0o755))
	stubPath := filepath.Join(cfg.StubsDir, "guide.md")
	require.NoError(t, os.WriteFile(stubPath, []byte("# Guide v1\n"), 0o644))

	runner := NewRunner(cfg, offlineForge{}, observability.NewMetrics(), workdir)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(stubPath, []byte("# Guide v2\n"), 0o644))
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(cfg.SiteDir, "configurations", "guide", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "# Guide v2\n", string(written))
}

// Canceling serve right after an edit must shut down cleanly even though
// the debounce timer for that edit fires after the loop has exited. A send
// racing the shutdown used to hit a closed channel and panic the process.
func TestServeShutdownDuringDebounce(t *testing.T) {
	workdir := initWorkdir(t)

	empty := ""
	cfg := &config.Config{
		Repo:      "acme/models",
		Main:      config.MainWebsite{Branch: "work", Pattern: &empty},
		Preview:   config.PreviewWebsite{Pattern: &empty},
		LocalStub: true,
		StubsDir:  filepath.Join(workdir, "documentation"),
		SiteDir:   filepath.Join(t.TempDir(), "site"),
	}
	require.NoError(t, cfg.Normalize())
	require.NoError(t, os.MkdirAll(cfg.StubsDir, 0o755))
	stubPath := filepath.Join(cfg.StubsDir, "guide.md")
	require.NoError(t, os.WriteFile(stubPath, []byte("# Guide\n"), 0o644))

	runner := NewRunner(cfg, offlineForge{}, observability.NewMetrics(), workdir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Serve(ctx, "") }()

	// Let the initial build finish and the watch get established.
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, os.WriteFile(stubPath, []byte("# Guide edited\n"), 0o644))
	// Cancel inside the debounce window, before the edit's timer fires.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}

	// Outlive the debounce window: the timer's late send must be harmless.
	time.Sleep(2 * rebuildDebounce)
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := []struct {
		path   string
		ignore bool
	}{
		{"documentation/guide.md", false},
		{"documentation/.guide.md.swp", true},
		{"documentation/guide.md~", true},
		{"documentation/#guide.md#", true},
		{"documentation/Thumbs.db", true},
		{"documentation/notes.html", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ignore, shouldIgnoreEvent(tc.path), tc.path)
	}
}
