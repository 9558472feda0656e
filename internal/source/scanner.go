package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HouseholdsDir returns the directory under dataDir that holds snapshot files.
func HouseholdsDir(dataDir string) string {
	return filepath.Join(dataDir, "households")
}

// ScanDir walks <dataDir>/households and discovers all JSONL snapshot files.
//
//	households/smith.jsonl            -> household "smith"
//	households/jones/2026-q1.jsonl    -> household "jones"
//	households/jones/accounts.jsonl   -> household "jones"
//
// Files are returned sorted by path so merged snapshots are stable.
func ScanDir(dataDir string) ([]DiscoveredFile, error) {
	root := HouseholdsDir(dataDir)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		parts := strings.Split(rel, string(filepath.Separator))

		var id string
		switch len(parts) {
		case 1:
			id = strings.TrimSuffix(parts[0], ".jsonl")
		case 2:
			id = parts[0]
		default:
			// deeper nesting is not a recognized layout
			return nil
		}
		if id == "" {
			return nil
		}

		files = append(files, DiscoveredFile{Path: path, HouseholdID: id})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

// CountHouseholds returns the number of unique households in a set of files.
func CountHouseholds(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.HouseholdID] = struct{}{}
	}
	return len(seen)
}
