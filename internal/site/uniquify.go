package site

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// appendNumberToFileName inserts n immediately before the file extension:
// "stub.md" + 2 -> "stub2.md". A name without an extension gets the number
// appended.
func appendNumberToFileName(name string, n int) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// Uniquify returns a (src, dest) pair that collides with neither existing
// set. If the proposed pair is already free it is returned unchanged.
// Otherwise increasing integers are inserted before the filename extension
// until both candidates are free: under directory-style URLs the
// destination's last directory segment is renumbered (the filename is an
// implicit index page under it), under plain URLs the destination filename
// itself. The source filename is renumbered the same way in both styles.
// Terminates because the existing sets are finite.
func Uniquify(src, dest string, useDirectoryURLs bool, existingSrcs, existingDests map[string]struct{}) (string, string) {
	_, srcTaken := existingSrcs[src]
	_, destTaken := existingDests[dest]
	if !srcTaken && !destTaken {
		return src, dest
	}

	for i := 1; ; i++ {
		newSrc := renumberLastSegment(src, i)
		var newDest string
		if useDirectoryURLs {
			destDir, destName := path.Split(dest)
			newDest = path.Join(renumberLastSegment(strings.TrimSuffix(destDir, "/"), i), destName)
		} else {
			newDest = renumberLastSegment(dest, i)
		}

		_, srcTaken = existingSrcs[newSrc]
		_, destTaken = existingDests[newDest]
		if !srcTaken && !destTaken {
			return newSrc, newDest
		}
	}
}

// renumberLastSegment applies appendNumberToFileName to the last path
// segment, leaving any leading directories untouched.
func renumberLastSegment(p string, n int) string {
	dir, name := path.Split(p)
	return dir + appendNumberToFileName(name, n)
}

// MakeFileUnique rewrites f's paths in place so they collide with nothing in
// files. A rewrite is logged as a warning because it changes a user-visible
// URL.
func MakeFileUnique(f *File, files *Files) {
	src, dest := Uniquify(f.SrcPath, f.DestPath, f.UseDirectoryURLs, files.SrcPaths(), files.DestPaths())
	if src == f.SrcPath && dest == f.DestPath {
		return
	}
	slog.Warn("file already exists in the site, changing its destination",
		"src", f.SrcPath, "original_dest", f.DestPath, "dest", dest)
	f.SrcPath = src
	f.DestPath = dest
}
