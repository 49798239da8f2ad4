// Package discovery finds project directories that hold a document pair.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HendryAvila/pairdoc/internal/config"
)

// ignoreDirs are never descended into.
var ignoreDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	"vendor": true, "dist": true, "build": true, "target": true,
	"venv": true, ".venv": true, "coverage": true,
}

// FindPairs walks root and returns, sorted, every directory containing at
// least one of the two conventional documents. Hidden directories and
// ignoreDirs are skipped; root itself is always inspected. Unreadable
// subdirectories are skipped rather than failing the walk.
func FindPairs(root string, files config.Files) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discovery: %s is not a directory", root)
	}

	found := map[string]bool{}
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && (ignoreDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if name := d.Name(); name == files.Structured || name == files.Narrative {
			found[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walking %s: %w", root, err)
	}

	dirs := make([]string, 0, len(found))
	for dir := range found {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}
