// Package plugin orchestrates the stub pipeline across the build lifecycle:
// configuration, file collection, and navigation, mirroring the hook order
// of the site generator that hosts it.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/stubdocs/internal/config"
	builderrors "git.home.luguber.info/inful/stubdocs/internal/errors"
	"git.home.luguber.info/inful/stubdocs/internal/forge"
	"git.home.luguber.info/inful/stubdocs/internal/gitrefs"
	"git.home.luguber.info/inful/stubdocs/internal/observability"
	"git.home.luguber.info/inful/stubdocs/internal/site"
	"git.home.luguber.info/inful/stubdocs/internal/stubs"
)

// ForgeClient is the hosting-API surface the plugin depends on.
type ForgeClient interface {
	stubs.RemoteAPI
	DefaultBranch(ctx context.Context, repo string) (string, error)
}

var titleCaser = cases.Title(language.English)

// Plugin wires reference resolution, stub fetching, and site integration
// together for one build session. The cache is handed in at construction so
// its lifetime (empty at session start, populated once) is explicit.
type Plugin struct {
	cfg     *config.Config
	client  ForgeClient
	cache   *stubs.Cache
	metrics *observability.Metrics

	// workdir is the local checkout the build runs in, consulted only for
	// its branch name and origin remote.
	workdir string

	repo    string
	navPath string

	localStub    *stubs.Stub
	localStubAbs string

	// newResolver is swapped out in tests to avoid live ref listings.
	newResolver func(localBranch string) *gitrefs.Resolver
}

// New creates a plugin for one build session.
func New(cfg *config.Config, client ForgeClient, cache *stubs.Cache, metrics *observability.Metrics, workdir string) *Plugin {
	return &Plugin{
		cfg:         cfg,
		client:      client,
		cache:       cache,
		metrics:     metrics,
		workdir:     workdir,
		newResolver: gitrefs.NewResolver,
	}
}

// Repo returns the resolved OWNER/REPO, valid after OnConfig.
func (p *Plugin) Repo() string { return p.repo }

// LocalStubPath returns the absolute path of the local stub file, or an
// empty string when no local stub was added. Valid after OnFiles.
func (p *Plugin) LocalStubPath() string { return p.localStubAbs }

// OnConfig resolves the repository and the navigation path. Runs before
// any remote traffic.
func (p *Plugin) OnConfig(ctx context.Context) error {
	if p.repo == "" {
		repo, err := gitrefs.RepoFromInput(p.cfg.Repo, p.workdir)
		if err != nil {
			return builderrors.Wrap(err, builderrors.CategoryConfig, builderrors.SeverityFatal,
				"cannot determine hosting repository")
		}
		p.repo = repo
		observability.InfoContext(ctx, "hosting repository resolved", slog.String("repo", p.repo))
	}
	p.navPath = p.cfg.NavPath()
	return nil
}

// OnFiles adds the stub files to the site's file collection: the working
// tree's own stub first (when enabled), then the remote stubs, from the
// cache if this session already fetched them.
func (p *Plugin) OnFiles(ctx context.Context, files *site.Files) error {
	ctx = observability.WithRepo(ctx, p.repo)

	if p.cfg.LocalStub {
		stub, err := stubs.LocalStub(p.cfg.StubsDir, p.cfg.SupportedFormats)
		if err != nil {
			return builderrors.Wrap(err, builderrors.CategoryFileSystem, builderrors.SeverityFatal,
				"local stub unreadable")
		}
		if stub != nil {
			p.addStubToSite(ctx, stub, files)
			p.localStub = stub
			p.localStubAbs = stub.File.AbsSrcPath()
		}
	}

	if p.cache.Populated() {
		observability.InfoContext(ctx, "using cached remote stubs",
			slog.Int("count", len(p.cache.Stubs())))
		for _, stub := range p.cache.Stubs() {
			files.Append(stub.File)
		}
		return nil
	}

	refs, err := p.resolveWebsiteRefs(ctx)
	if err != nil {
		return err
	}
	p.metrics.RefsResolved.Add(float64(len(refs)))

	start := time.Now()
	fetcher := stubs.NewFetcher(p.client, p.repo, p.cfg.StubsDir, p.cfg.SupportedFormats)
	fetched, err := fetcher.FetchAll(ctx, refs)
	p.metrics.FetchSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if forge.IsRateLimit(err) {
			p.metrics.RateLimitHits.Inc()
			return builderrors.Wrap(err, builderrors.CategoryForge, builderrors.SeverityFatal,
				"remote API quota exhausted")
		}
		return builderrors.Wrap(err, builderrors.CategoryForge, builderrors.SeverityFatal,
			"fetching remote stubs failed")
	}
	p.metrics.StubsFetched.Add(float64(len(fetched)))
	p.metrics.StubsSkipped.Add(float64(len(refs) - len(fetched)))

	for _, stub := range fetched {
		p.addStubToSite(ctx, stub, files)
	}
	p.cache.Put(fetched)
	return nil
}

// OnNav merges the stub pages into the navigation tree, sorted by title.
func (p *Plugin) OnNav(ctx context.Context, nav *site.Navigation) {
	pages := make([]*site.Page, 0, len(p.cache.Stubs())+1)
	if p.localStub != nil {
		pages = append(pages, p.localStub.Page)
	}
	for _, stub := range p.cache.Stubs() {
		pages = append(pages, stub.Page)
	}
	site.SortPagesByTitle(pages)

	segments := config.NavPathSegments(p.navPath)
	site.MergePages(nav, pages, segments)
	observability.InfoContext(ctx, "stub pages merged into navigation",
		slog.Int("pages", len(pages)), slog.String("nav_path", strings.Join(segments, " > ")))
}

// OnServe reports the local stub file to watch so serve mode rebuilds on
// live edits. No-op when no local stub was added.
func (p *Plugin) OnServe(watch func(path string) error) error {
	if p.localStubAbs == "" {
		return nil
	}
	return watch(p.localStubAbs)
}

// resolveWebsiteRefs picks the reference sets for this build: the main
// website's own refs when building the main site, otherwise the preview
// refs plus (unless suppressed) the main ones, deduplicated by SHA.
func (p *Plugin) resolveWebsiteRefs(ctx context.Context) ([]gitrefs.GitRef, error) {
	mainBranch := p.cfg.Main.Branch
	if mainBranch == "" {
		branch, err := p.client.DefaultBranch(ctx, p.repo)
		if err != nil {
			if forge.IsRateLimit(err) {
				return nil, builderrors.Wrap(err, builderrors.CategoryForge, builderrors.SeverityFatal,
					"remote API quota exhausted")
			}
			return nil, builderrors.Wrap(err, builderrors.CategoryForge, builderrors.SeverityFatal,
				"cannot resolve default branch")
		}
		mainBranch = branch
	}

	isMain := gitrefs.IsMainWebsite(mainBranch, p.repo, p.workdir)
	websiteType := "preview"
	if isMain {
		websiteType = "main"
	}
	observability.InfoContext(ctx, "building website", slog.String("website", websiteType))

	localBranch, err := gitrefs.LocalBranch(p.workdir)
	if err != nil {
		// No usable checkout: nothing to exclude.
		localBranch = ""
	}
	resolver := p.newResolver(localBranch)
	repoURL := "https://github.com/" + p.repo

	var refs []gitrefs.GitRef
	if isMain {
		refs, err = p.resolveSet(ctx, resolver, repoURL, "main", p.cfg.MainPattern(), p.cfg.Main.RefKind)
		if err != nil {
			return nil, err
		}
	} else {
		refs, err = p.resolveSet(ctx, resolver, repoURL, "preview", p.cfg.PreviewPattern(), p.cfg.Preview.RefKind)
		if err != nil {
			return nil, err
		}
		if !p.cfg.Preview.NoMain {
			mainRefs, err := p.resolveSet(ctx, resolver, repoURL, "main", p.cfg.MainPattern(), p.cfg.Main.RefKind)
			if err != nil {
				return nil, err
			}
			refs = append(refs, mainRefs...)
		}
	}

	unique := gitrefs.KeepUniqueRefs(refs)
	observability.InfoContext(ctx, "remote references resolved", slog.Int("count", len(unique)))
	return unique, nil
}

func (p *Plugin) resolveSet(ctx context.Context, resolver *gitrefs.Resolver, repoURL, setName, pattern string, kind config.GitRefKind) ([]gitrefs.GitRef, error) {
	if strings.TrimSpace(pattern) == "" {
		observability.InfoContext(ctx, "no references included, pattern is empty",
			slog.String("set", setName))
		return nil, nil
	}
	observability.InfoContext(ctx, "including stubs",
		slog.String("set", setName), slog.String("kind", kind.String()), slog.String("pattern", pattern))
	refs, err := resolver.Resolve(ctx, repoURL, pattern, refKind(kind))
	if err != nil {
		return nil, builderrors.Wrap(err, builderrors.CategoryGit, builderrors.SeverityFatal,
			fmt.Sprintf("listing %s references failed", setName))
	}
	return refs, nil
}

func refKind(kind config.GitRefKind) gitrefs.Kind {
	switch kind {
	case config.RefKindBranch:
		return gitrefs.KindBranch
	case config.RefKindTag:
		return gitrefs.KindTag
	default:
		return gitrefs.KindAny
	}
}

// addStubToSite turns a resolved stub into a site file and page. Remote
// stubs carry their content in memory; the local stub stays backed by the
// working tree so live edits show up on rebuild.
func (p *Plugin) addStubToSite(ctx context.Context, stub *stubs.Stub, files *site.Files) {
	file := site.NewFile(stub.Fname, p.cfg.StubsSiteDir, *p.cfg.UseDirectoryURLs, p.cfg.SupportedFormats)
	if stub.Local() {
		abs, err := filepath.Abs(p.cfg.StubsDir)
		if err != nil {
			abs = p.cfg.StubsDir
		}
		file.SrcDir = abs
	} else {
		file.Content = stub.Content
	}
	site.MakeFileUnique(file, files)
	files.Append(file)
	stub.File = file

	title := stub.Title
	if title == "" {
		title = fallbackTitle(file.SrcPath, p.cfg.SupportedFormats)
	}
	stub.Page = &site.Page{Title: title, File: file}

	location := "git ref " + stub.Ref.String()
	if stub.Local() {
		location = file.SrcDir
	}
	observability.InfoContext(ctx, "stub added",
		slog.String("file", stub.Fname),
		slog.String("location", location),
		slog.String("page", title),
		slog.String("dest", file.DestPath))
}

// fallbackTitle derives a page title from a stub filename when its content
// has no heading.
func fallbackTitle(fname string, formats []string) string {
	base := fname
	for _, format := range formats {
		if strings.HasSuffix(base, format) {
			base = strings.TrimSuffix(base, format)
			break
		}
	}
	return titleCaser.String(base)
}
