package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/source"
	"github.com/theirongolddev/cashpulse/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	Removed   int
}

// LoadWithCache discovers, diffs against cache, parses only changed files,
// and returns the combined result set. Files that disappeared from disk are
// dropped from the cache.
func LoadWithCache(dataDir string, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	result := &CachedLoadResult{
		LoadResult: LoadResult{
			TotalFiles:     len(files),
			HouseholdCount: source.CountHouseholds(files),
		},
	}

	// Forget files that no longer exist.
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}
	}
	for path := range tracked {
		if _, ok := present[path]; !ok {
			if err := cache.DeleteFile(path); err != nil {
				return nil, fmt.Errorf("pruning %s: %w", path, err)
			}
			result.Removed++
		}
	}

	if len(files) == 0 {
		return result, nil
	}

	// Diff: partition into changed and unchanged
	var toReparse []source.DiscoveredFile
	unchanged := make(map[string]struct{})

	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}

		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == info.ModTime().UnixNano() && cached.SizeBytes == info.Size() && cached.HouseholdID == f.HouseholdID {
			unchanged[f.Path] = struct{}{}
		} else {
			toReparse = append(toReparse, f)
		}
	}

	result.CacheHits = len(unchanged)
	result.Reparsed = len(toReparse)

	parts := make(map[string]model.Snapshot, len(files))

	if len(unchanged) > 0 {
		cachedParts, err := cache.LoadFiles()
		if err != nil {
			return nil, fmt.Errorf("loading cached snapshots: %w", err)
		}
		for path := range unchanged {
			if p, ok := cachedParts[path]; ok {
				parts[path] = p
				result.ParsedFiles++
			}
		}
	}

	if len(toReparse) > 0 {
		parsed := parseParallel(toReparse, func(n int) {
			if progressFn != nil {
				progressFn(n+result.CacheHits, result.TotalFiles)
			}
		})

		for i, pr := range parsed {
			if pr.Err != nil {
				result.FileErrors++
				result.Errors = append(result.Errors, FileError{HouseholdID: pr.File.HouseholdID, Path: pr.File.Path, Err: pr.Err})
				// A stale cached copy must not stand in for a broken file.
				_ = cache.DeleteFile(pr.File.Path)
				continue
			}
			result.ParsedFiles++
			parts[pr.File.Path] = pr.Part

			info, err := os.Stat(toReparse[i].Path)
			if err == nil {
				_ = cache.SaveFile(toReparse[i].Path, pr.Part, info.ModTime().UnixNano(), info.Size())
			}
		}
	}

	result.Households = assemble(files, parts, result.Errors)
	return result, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashpulse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "cashpulse")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "health.db")
}
