// Package site holds the host-side structures of the generated site: the
// output file set, pages, and the navigation tree, together with the path
// uniquification and navigation merge algorithms that keep them consistent.
package site

import (
	"path"
	"strings"
)

// File is one document committed to the output file set. SrcPath identifies
// the source document, DestPath the location it is published at. Remote
// stubs carry their content in memory; local stubs are read from SrcDir.
type File struct {
	SrcPath  string
	DestPath string

	// SrcDir is the absolute directory SrcPath is relative to, for files
	// backed by the working tree. Empty for in-memory content.
	SrcDir string

	// Content is the in-memory document body for remote stubs.
	Content string

	UseDirectoryURLs bool
}

// AbsSrcPath returns the absolute source path for files backed by the
// working tree, or an empty string for in-memory files.
func (f *File) AbsSrcPath() string {
	if f.SrcDir == "" {
		return ""
	}
	return path.Join(f.SrcDir, f.SrcPath)
}

// NewFile creates a file whose destination is derived from the source name:
// the supported extension is stripped and the remainder is published under
// parentURL, either as <name>/index.html (directory-style URLs) or as
// <name>.html.
func NewFile(srcPath, parentURL string, useDirectoryURLs bool, supportedFormats []string) *File {
	return &File{
		SrcPath:          srcPath,
		DestPath:         DestURI(srcPath, parentURL, useDirectoryURLs, supportedFormats),
		UseDirectoryURLs: useDirectoryURLs,
	}
}

// DestURI computes the destination path for a stub file name published under
// parentURL.
func DestURI(fname, parentURL string, useDirectoryURLs bool, supportedFormats []string) string {
	base := fname
	for _, format := range supportedFormats {
		if strings.HasSuffix(fname, format) {
			base = strings.TrimSuffix(fname, format)
			break
		}
	}
	dest := path.Join(strings.Trim(parentURL, "/"), base)
	if useDirectoryURLs {
		return path.Join(dest, "index.html")
	}
	return dest + ".html"
}

// Files is the ordered collection of output files for one build.
type Files struct {
	files []*File
}

// NewFiles creates an empty file collection.
func NewFiles() *Files { return &Files{} }

// Append adds a file to the collection.
func (fs *Files) Append(f *File) { fs.files = append(fs.files, f) }

// All returns the files in insertion order.
func (fs *Files) All() []*File { return fs.files }

// Len returns the number of files.
func (fs *Files) Len() int { return len(fs.files) }

// SrcPaths returns the set of source paths already committed.
func (fs *Files) SrcPaths() map[string]struct{} {
	set := make(map[string]struct{}, len(fs.files))
	for _, f := range fs.files {
		set[f.SrcPath] = struct{}{}
	}
	return set
}

// DestPaths returns the set of destination paths already committed.
func (fs *Files) DestPaths() map[string]struct{} {
	set := make(map[string]struct{}, len(fs.files))
	for _, f := range fs.files {
		set[f.DestPath] = struct{}{}
	}
	return set
}
