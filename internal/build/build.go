// Package build runs complete build sessions: it drives the plugin
// lifecycle and commits the resulting file set to the output directory.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/stubdocs/internal/config"
	builderrors "git.home.luguber.info/inful/stubdocs/internal/errors"
	"git.home.luguber.info/inful/stubdocs/internal/observability"
	"git.home.luguber.info/inful/stubdocs/internal/plugin"
	"git.home.luguber.info/inful/stubdocs/internal/site"
	"git.home.luguber.info/inful/stubdocs/internal/stubs"
)

// Result summarizes one completed build.
type Result struct {
	BuildID  string
	Files    int
	Duration time.Duration

	// OutputDir is where the site was written.
	OutputDir string

	// LocalStubPath is the absolute path of the working tree's stub file,
	// empty when none was included. Serve mode watches it.
	LocalStubPath string
}

// Runner executes builds for one configuration. The stub cache lives on the
// runner, so repeated builds in one process (serve mode) reuse the remote
// stubs instead of refetching them.
type Runner struct {
	cfg     *config.Config
	client  plugin.ForgeClient
	metrics *observability.Metrics
	workdir string
	cache   *stubs.Cache
}

// NewRunner creates a runner. workdir is the local checkout the build runs
// in, usually the current directory.
func NewRunner(cfg *config.Config, client plugin.ForgeClient, metrics *observability.Metrics, workdir string) *Runner {
	return &Runner{
		cfg:     cfg,
		client:  client,
		metrics: metrics,
		workdir: workdir,
		cache:   stubs.NewCache(),
	}
}

// Run executes one build session: plugin lifecycle, then site output.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	buildID := uuid.NewString()
	ctx = observability.WithBuildID(ctx, buildID)
	observability.InfoContext(ctx, "build started")

	p := plugin.New(r.cfg, r.client, r.cache, r.metrics, r.workdir)

	if err := p.OnConfig(observability.WithStage(ctx, "config")); err != nil {
		return nil, err
	}

	files := site.NewFiles()
	if err := p.OnFiles(observability.WithStage(ctx, "files"), files); err != nil {
		return nil, err
	}

	nav := &site.Navigation{}
	p.OnNav(observability.WithStage(ctx, "nav"), nav)

	if err := r.writeSite(observability.WithStage(ctx, "write"), files); err != nil {
		return nil, err
	}

	result := &Result{
		BuildID:       buildID,
		Files:         files.Len(),
		Duration:      time.Since(start),
		OutputDir:     r.cfg.SiteDir,
		LocalStubPath: p.LocalStubPath(),
	}
	observability.InfoContext(ctx, "build finished",
		slog.Int("files", result.Files),
		slog.Duration("duration", result.Duration),
		slog.String("output", result.OutputDir))
	return result, nil
}

// writeSite commits the file set to the output directory. Remote stubs are
// written from memory; the local stub is read fresh from the working tree on
// every build, so serve-mode rebuilds pick up edits.
func (r *Runner) writeSite(ctx context.Context, files *site.Files) error {
	for _, f := range files.All() {
		content := f.Content
		if abs := f.AbsSrcPath(); abs != "" {
			data, err := os.ReadFile(abs)
			if err != nil {
				return builderrors.Wrap(err, builderrors.CategoryFileSystem, builderrors.SeverityFatal,
					fmt.Sprintf("read source file %s", abs))
			}
			content = string(data)
		}

		dest := filepath.Join(r.cfg.SiteDir, filepath.FromSlash(f.DestPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return builderrors.Wrap(err, builderrors.CategoryFileSystem, builderrors.SeverityFatal,
				fmt.Sprintf("create output directory for %s", f.DestPath))
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return builderrors.Wrap(err, builderrors.CategoryFileSystem, builderrors.SeverityFatal,
				fmt.Sprintf("write output file %s", f.DestPath))
		}
		observability.DebugContext(ctx, "output file written",
			slog.String("src", f.SrcPath), slog.String("dest", dest))
	}
	return nil
}
