// Package gitrefs resolves the remote Git references (branches and tags)
// that contribute configuration stubs to a build, and inspects the local
// checkout for its branch name and origin remote.
package gitrefs

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	headsPrefix = "refs/heads/"
	tagsPrefix  = "refs/tags/"

	// Annotated tags are listed twice by the remote: once as the tag object
	// and once peeled to the underlying commit under this suffix. Both point
	// at the same tree content, so peeled entries are dropped.
	peeledSuffix = "^{}"
)

// GitRef is a named pointer into repository history. Identity is the SHA;
// Name is the short branch or tag name with its refs/ prefix stripped.
type GitRef struct {
	SHA  string
	Name string
}

// String renders the ref the way it shows up in logs.
func (r GitRef) String() string { return fmt.Sprintf("%s (%s)", r.Name, r.SHA) }

// Kind selects which remote references a listing considers.
type Kind int

const (
	KindBranch Kind = iota
	KindTag
	KindAny
)

// Resolver lists and filters remote references for one repository.
type Resolver struct {
	// localBranch is the branch currently checked out in the working copy.
	// Its remote counterpart is excluded from results: the local stub path
	// serves that branch so live edits show up without a remote round trip.
	localBranch string

	// list is swapped out in tests; the default performs one ls-remote style
	// query via go-git against an in-memory remote.
	list func(ctx context.Context, repoURL string) ([]*plumbing.Reference, error)
}

// NewResolver creates a resolver. localBranch may be empty (detached HEAD or
// no local checkout), in which case no branch is excluded.
func NewResolver(localBranch string) *Resolver {
	return &Resolver{
		localBranch: localBranch,
		list:        listRemoteRefs,
	}
}

// NewResolverWithLister creates a resolver backed by a custom listing
// function instead of a live remote.
func NewResolverWithLister(localBranch string, list func(ctx context.Context, repoURL string) ([]*plumbing.Reference, error)) *Resolver {
	return &Resolver{localBranch: localBranch, list: list}
}

// Resolve issues one ref-listing query against repoURL and returns the refs
// of the requested kind whose short name matches pattern. The pattern may
// hold several space-separated globs; a ref matching any of them is kept.
// An empty pattern short-circuits to an empty result without any network
// traffic. Results are deduplicated by SHA, first seen name wins.
func (r *Resolver) Resolve(ctx context.Context, repoURL, pattern string, kind Kind) ([]GitRef, error) {
	patterns := strings.Fields(pattern)
	if len(patterns) == 0 {
		return nil, nil
	}

	refs, err := r.list(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("list references for %s: %w", repoURL, err)
	}

	matched := r.filter(refs, patterns, kind)
	unique := KeepUniqueRefs(matched)
	slog.Debug("resolved remote references",
		"repo", repoURL, "pattern", pattern, "count", len(unique))
	return unique, nil
}

func (r *Resolver) filter(refs []*plumbing.Reference, patterns []string, kind Kind) []GitRef {
	out := make([]GitRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Type() == plumbing.SymbolicReference {
			continue
		}
		name := ref.Name().String()
		if strings.HasSuffix(name, peeledSuffix) {
			continue
		}

		var short string
		switch {
		case strings.HasPrefix(name, headsPrefix):
			if kind == KindTag {
				continue
			}
			short = strings.TrimPrefix(name, headsPrefix)
			if r.localBranch != "" && short == r.localBranch {
				continue
			}
		case strings.HasPrefix(name, tagsPrefix):
			if kind == KindBranch {
				continue
			}
			short = strings.TrimPrefix(name, tagsPrefix)
		default:
			continue
		}

		if !matchAny(patterns, short) {
			continue
		}
		out = append(out, GitRef{SHA: ref.Hash().String(), Name: short})
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// KeepUniqueRefs drops refs whose SHA was already seen, preserving the order
// and name of each first occurrence. Two logical ref sets (main + preview)
// are concatenated before this pass, so a SHA present in both keeps the name
// it appeared under first.
func KeepUniqueRefs(refs []GitRef) []GitRef {
	seen := make(map[string]struct{}, len(refs))
	unique := make([]GitRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.SHA]; ok {
			continue
		}
		seen[ref.SHA] = struct{}{}
		unique = append(unique, ref)
	}
	return unique
}

// listRemoteRefs performs a single ls-remote equivalent against an anonymous
// in-memory remote. One round trip returns every head and tag; filtering
// happens locally.
func listRemoteRefs(ctx context.Context, repoURL string) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	return remote.ListContext(ctx, &git.ListOptions{})
}
