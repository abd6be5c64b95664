// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths in
// lexical order.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// FindFiles resolves pattern to a sorted list of files. A pattern containing
// glob meta characters is expanded with doublestar semantics ("**" crosses
// directories); a directory is searched recursively for extension; anything
// else must be an existing file.
func FindFiles(pattern string, extension string) ([]string, error) {
	if strings.ContainsAny(pattern, "*?[{") {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(pattern)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return FindFilesByExtension(pattern, extension)
	}
	return []string{pattern}, nil
}
