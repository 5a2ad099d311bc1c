// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
)

// FindStyleFiles recursively searches the given root path for files accepted
// by the match predicate and returns their full paths in walk order.
func FindStyleFiles(rootPath string, match func(path string) bool) ([]string, error) {
	if match == nil {
		panic("match predicate must not be nil")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
