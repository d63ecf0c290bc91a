// Package scan is the file/search collaborator behind tool-request
// fulfillment: bounded file reads and pattern searches over an indexed
// repository tree.
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FileEntry is one indexed file, path repo-relative with forward slashes.
type FileEntry struct {
	Path string
	Size int64
	Ext  string
}

// skipDirs are VCS and dependency directories excluded from the index.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true, "target": true,
	"build": true, ".next": true, ".cache": true,
}

// IndexRepo walks root and returns the sorted file index.
func IndexRepo(root string) ([]FileEntry, error) {
	var index []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[filepath.Base(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		size := int64(0)
		if info, e := d.Info(); e == nil {
			size = info.Size()
		}
		index = append(index, FileEntry{
			Path: rel,
			Size: size,
			Ext:  strings.ToLower(filepath.Ext(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Path < index[j].Path })
	return index, nil
}
