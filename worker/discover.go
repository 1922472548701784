package worker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover expands paths into the list of bundle files to process, in
// argument order. Files are taken as given; directories are walked
// recursively and contribute their *.json files in sorted order. A file
// reached twice is kept at its first position.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		var walked []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsBundleFile(path) {
				walked = append(walked, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}

		sort.Strings(walked)
		for _, path := range walked {
			add(path)
		}
	}

	return files, nil
}

// IsBundleFile reports whether path has a .json extension.
func IsBundleFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
