package stubs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/stubdocs/internal/forge"
	"git.home.luguber.info/inful/stubdocs/internal/gitrefs"
	"git.home.luguber.info/inful/stubdocs/internal/observability"
)

// RemoteAPI is the slice of the forge client the fetcher needs.
type RemoteAPI interface {
	// DirEntriesBatch resolves directory entries for many (ref, path) pairs
	// in one request, keyed by ref SHA.
	DirEntriesBatch(ctx context.Context, repo string, queries []forge.TreeQuery) (map[string][]forge.DirEntry, error)
	// RawContent fetches one file's raw text at one ref.
	RawContent(ctx context.Context, repo, ref, dir, name string) (string, error)
	// Classify upgrades a failed-call error to a rate-limit error when the
	// quota is exhausted.
	Classify(ctx context.Context, err error) error
}

// Fetcher retrieves the stubs for a set of resolved references. The whole
// batch costs one structured lookup plus one raw fetch per surviving stub,
// which keeps remote calls within the API's hourly quota even for large
// reference sets.
type Fetcher struct {
	api      RemoteAPI
	repo     string
	stubsDir string
	formats  []string
}

// NewFetcher creates a fetcher for one repository's stub directory.
func NewFetcher(api RemoteAPI, repo, stubsDir string, formats []string) *Fetcher {
	return &Fetcher{api: api, repo: repo, stubsDir: stubsDir, formats: formats}
}

// FetchAll resolves filename, content, and title for every reference and
// returns only the fully resolved stubs. A reference whose stub directory
// is absent or ambiguous is skipped with a warning, as is one whose content
// fetch fails; a failure of the batched lookup itself is fatal and is
// classified against the rate limit.
func (f *Fetcher) FetchAll(ctx context.Context, refs []gitrefs.GitRef) ([]*Stub, error) {
	working := make([]*Stub, 0, len(refs))
	for _, ref := range refs {
		working = append(working, &Stub{Ref: ref})
	}

	working, err := f.resolveFilenames(ctx, working)
	if err != nil {
		return nil, err
	}
	working = f.fetchContents(ctx, working)
	for _, stub := range working {
		stub.Title = TitleFor(stub.Fname, stub.Content)
	}
	return working, nil
}

// resolveFilenames is the batched phase: one structured query covering every
// reference, then the exactly-one-match rule per reference.
func (f *Fetcher) resolveFilenames(ctx context.Context, working []*Stub) ([]*Stub, error) {
	if len(working) == 0 {
		return working, nil
	}

	queries := make([]forge.TreeQuery, len(working))
	for i, stub := range working {
		queries[i] = forge.TreeQuery{SHA: stub.Ref.SHA, Path: f.stubsDir}
	}
	entries, err := f.api.DirEntriesBatch(ctx, f.repo, queries)
	if err != nil {
		return nil, f.api.Classify(ctx, fmt.Errorf("resolve stub filenames: %w", err))
	}

	kept := working[:0]
	for _, stub := range working {
		names := filterSupported(entries[stub.Ref.SHA], f.formats)
		if len(names) != 1 {
			observability.WarnContext(ctx, "skipping reference without exactly one stub file",
				slog.String("ref", stub.Ref.String()),
				slog.String("dir", f.stubsDir),
				slog.Int("candidates", len(names)))
			continue
		}
		stub.Fname = names[0]
		kept = append(kept, stub)
	}
	return kept, nil
}

// fetchContents retrieves the raw body of each surviving stub. Failures are
// soft: the stub is dropped, the batch continues.
func (f *Fetcher) fetchContents(ctx context.Context, working []*Stub) []*Stub {
	kept := working[:0]
	for _, stub := range working {
		content, err := f.api.RawContent(ctx, f.repo, stub.Ref.SHA, f.stubsDir, stub.Fname)
		if err != nil {
			observability.WarnContext(ctx, "skipping reference, stub content fetch failed",
				slog.String("ref", stub.Ref.String()),
				slog.String("file", stub.Fname),
				slog.Any("error", err))
			continue
		}
		stub.Content = content
		kept = append(kept, stub)
	}
	return kept
}

// filterSupported keeps the file entries whose name ends in a supported
// extension.
func filterSupported(entries []forge.DirEntry, formats []string) []string {
	var names []string
	for _, entry := range entries {
		if !entry.IsFile() {
			continue
		}
		if hasSupportedSuffix(entry.Name, formats) {
			names = append(names, entry.Name)
		}
	}
	return names
}

func hasSupportedSuffix(name string, formats []string) bool {
	for _, format := range formats {
		if strings.HasSuffix(name, format) {
			return true
		}
	}
	return false
}

// LocalStub resolves the working tree's own stub with the same
// exactly-one-match rule, no network involved. A missing or ambiguous
// directory yields a nil stub and a warning, matching the soft-skip policy
// of the remote path. The content is left on disk: the returned stub's
// file is read by the host, so live edits are picked up.
func LocalStub(stubsDir string, formats []string) (*Stub, error) {
	dirEntries, err := os.ReadDir(stubsDir)
	if err != nil {
		slog.Warn("skipping local stub, directory unreadable", "dir", stubsDir, "error", err)
		return nil, nil
	}

	var names []string
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		if hasSupportedSuffix(entry.Name(), formats) {
			names = append(names, entry.Name())
		}
	}
	if len(names) != 1 {
		slog.Warn("skipping local stub, directory does not hold exactly one stub file",
			"dir", stubsDir, "candidates", len(names))
		return nil, nil
	}

	content, err := os.ReadFile(filepath.Join(stubsDir, names[0]))
	if err != nil {
		return nil, fmt.Errorf("read local stub %s: %w", names[0], err)
	}
	return &Stub{
		Fname:   names[0],
		Content: string(content),
		Title:   TitleFor(names[0], string(content)),
	}, nil
}
