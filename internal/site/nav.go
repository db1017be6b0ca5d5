package site

import (
	"log/slog"
	"sort"
	"strings"
)

// Item is a node of the navigation tree: either a *Section or a *Page.
type Item interface {
	ItemTitle() string
}

// Page is a leaf of the navigation tree backed by one output file.
type Page struct {
	Title  string
	File   *File
	Parent *Section
}

// ItemTitle returns the page title.
func (p *Page) ItemTitle() string { return p.Title }

// Section is an internal node holding an ordered list of children.
type Section struct {
	Title    string
	Children []Item
}

// ItemTitle returns the section title.
func (s *Section) ItemTitle() string { return s.Title }

// Navigation is the root of the site's navigation tree. It is rebuilt from
// scratch on every build, so merges never encounter their own output.
type Navigation struct {
	Items []Item
}

// SortPagesByTitle orders pages alphabetically by title, stable with respect
// to input order for equal titles.
func SortPagesByTitle(pages []*Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Title < pages[j].Title
	})
}

// MergePages attaches pages (already sorted by title) to the navigation
// under the section chain named by segments. Existing sections are walked by
// exact title match; only the missing suffix of the chain is created. A
// single empty segment requests root placement: pages are appended directly
// to the navigation's items and no section is touched.
func MergePages(nav *Navigation, pages []*Page, segments []string) {
	if len(segments) == 1 && segments[0] == "" {
		nav.Items = append(nav.Items, pagesToItems(pages)...)
		return
	}

	var parent *Section
	children := &nav.Items
	for i, title := range segments {
		section := findSection(*children, title)
		if section == nil {
			hierarchy := strings.Join(segments[max(i-1, 0):i+1], " -> ")
			slog.Warn("section not found in the site navigation, creating it",
				"hierarchy", hierarchy, "section", title)
			parent = addHierarchy(children, segments[i:])
			children = &parent.Children
			break
		}
		parent = section
		children = &section.Children
	}

	for _, page := range pages {
		page.Parent = parent
	}
	*children = append(*children, pagesToItems(pages)...)
}

// addHierarchy appends a fresh chain of sections named by titles to
// children, each new section the sole child of the previous one, and
// returns the deepest section.
func addHierarchy(children *[]Item, titles []string) *Section {
	var deepest *Section
	for _, title := range titles {
		section := &Section{Title: title}
		*children = append(*children, section)
		children = &section.Children
		deepest = section
	}
	return deepest
}

// findSection returns the first section among items with the given title,
// exact and case-sensitive, or nil.
func findSection(items []Item, title string) *Section {
	for _, item := range items {
		if section, ok := item.(*Section); ok && section.Title == title {
			return section
		}
	}
	return nil
}

func pagesToItems(pages []*Page) []Item {
	items := make([]Item, len(pages))
	for i, page := range pages {
		items[i] = page
	}
	return items
}
