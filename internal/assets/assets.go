// Package assets enumerates image files under an operator-configured root.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("path escapes asset root")

// DefaultLimit bounds a single listing.
const DefaultLimit = 500

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".svg":  true,
}

// List walks root (or root/sub when sub is non-empty) and returns
// root-relative paths of image files, at most limit entries. Subpaths that
// resolve outside the root are rejected.
func List(root, sub string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	dir := root
	if sub != "" {
		if filepath.IsAbs(sub) {
			return nil, ErrOutsideRoot
		}
		cleaned := filepath.Clean(sub)
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
			return nil, ErrOutsideRoot
		}
		dir = filepath.Join(root, cleaned)
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		if len(out) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk assets: %w", err)
	}
	return out, nil
}
