package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var formats = []string{".md", ".html"}

func TestDestURI(t *testing.T) {
	cases := []struct {
		fname   string
		parent  string
		dirURLs bool
		want    string
	}{
		{"stub.md", "configs", true, "configs/stub/index.html"},
		{"stub.md", "configs", false, "configs/stub.html"},
		{"stub.html", "parent/url", true, "parent/url/stub/index.html"},
		{"stub.html", "parent/url/", false, "parent/url/stub.html"},
		{"stub.txt", "configs", false, "configs/stub.txt.html"},
	}
	for _, tc := range cases {
		got := DestURI(tc.fname, tc.parent, tc.dirURLs, formats)
		assert.Equal(t, tc.want, got, "%s under %s", tc.fname, tc.parent)
	}
}

func TestNewFileDerivesDest(t *testing.T) {
	f := NewFile("stub.md", "configs", true, formats)
	assert.Equal(t, "stub.md", f.SrcPath)
	assert.Equal(t, "configs/stub/index.html", f.DestPath)
	assert.True(t, f.UseDirectoryURLs)
}

func TestAbsSrcPath(t *testing.T) {
	f := &File{SrcPath: "stub.md", SrcDir: "/work/documentation"}
	assert.Equal(t, "/work/documentation/stub.md", f.AbsSrcPath())

	inMemory := &File{SrcPath: "stub.md", Content: "# T"}
	assert.Equal(t, "", inMemory.AbsSrcPath())
}

func TestFilesPathSets(t *testing.T) {
	fs := NewFiles()
	fs.Append(&File{SrcPath: "a.md", DestPath: "x/a/index.html"})
	fs.Append(&File{SrcPath: "b.md", DestPath: "x/b/index.html"})

	srcs := fs.SrcPaths()
	dests := fs.DestPaths()
	assert.Contains(t, srcs, "a.md")
	assert.Contains(t, dests, "x/b/index.html")
	assert.Equal(t, 2, fs.Len())
}
