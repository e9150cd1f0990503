// Package archive builds a Walk abstraction on top of "archive/zip", shared
// by anything that needs to iterate one prefix of a zip archive's entries:
// bundle's asset directory on read, and the headless driver's ingestion of a
// pre-fetched asset cache packaged as a zip.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each entry under pattern
// that Walk visits. file is the zip.File for the matched entry. If an error
// is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Walk visits every non-directory entry in zr whose name has the given
// prefix, calling walkFn for each. Entries with path traversal components
// ("..") or absolute paths are rejected to prevent Zip Slip.
func Walk(zr *zip.Reader, pattern string, walkFn WalkFunc) error {
	for _, f := range zr.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := walkFn(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
