// Package stubs fetches configuration-stub documents from the points of a
// repository's history selected by gitrefs, and from the local working tree.
package stubs

import (
	"sync"

	"git.home.luguber.info/inful/stubdocs/internal/gitrefs"
	"git.home.luguber.info/inful/stubdocs/internal/site"
)

// Stub is one configuration document associated with one repository
// reference, surfaced as one generated page. It starts with only Ref set
// (or nothing, for the local working-tree stub); each pipeline phase fills
// one more field or drops the stub from the working set.
type Stub struct {
	Ref     gitrefs.GitRef
	Fname   string
	Content string
	Title   string

	// File and Page are attached by the site-integration step.
	File *site.File
	Page *site.Page
}

// Local reports whether the stub comes from the working tree rather than a
// remote reference.
func (s *Stub) Local() bool { return s.Ref.SHA == "" }

// Cache holds the remote stubs fetched during a build session so repeated
// plugin invocations within one process (e.g. live-reload rebuilds) skip
// the remote round trips. It starts empty and is populated exactly once.
type Cache struct {
	mu        sync.Mutex
	stubs     []*Stub
	populated bool
}

// NewCache creates an empty cache.
func NewCache() *Cache { return &Cache{} }

// Populated reports whether the cache has been filled.
func (c *Cache) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}

// Put stores the fetched stubs. Later calls overwrite, which only happens
// if the caller bypassed Populated.
func (c *Cache) Put(stubs []*Stub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stubs = stubs
	c.populated = true
}

// Stubs returns the cached stubs in their fetch order.
func (c *Cache) Stubs() []*Stub {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stubs
}
