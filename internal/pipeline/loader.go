package pipeline

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/source"
)

// LoadResult holds the output of the snapshot loading pipeline.
type LoadResult struct {
	Households     []model.Snapshot // sorted by household ID
	TotalFiles     int
	ParsedFiles    int
	FileErrors     int
	HouseholdCount int
	Errors         []FileError
}

// FileError records a snapshot file that could not be parsed. Its whole
// household is left out of the result.
type FileError struct {
	HouseholdID string
	Path        string
	Err         error
}

func (e FileError) Error() string {
	return fmt.Sprintf("household %s: %v", e.HouseholdID, e.Err)
}

// ProgressFunc is called during loading to report progress.
// current is the number of items processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses all household snapshot files under dataDir.
// It uses a bounded worker pool for parallel parsing.
func Load(dataDir string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	result := &LoadResult{
		TotalFiles:     len(files),
		HouseholdCount: source.CountHouseholds(files),
	}
	if len(files) == 0 {
		return result, nil
	}

	parsed := parseParallel(files, func(n int) {
		if progressFn != nil {
			progressFn(n, len(files))
		}
	})

	parts := make(map[string]model.Snapshot, len(parsed))
	for _, pr := range parsed {
		if pr.Err != nil {
			result.FileErrors++
			result.Errors = append(result.Errors, FileError{HouseholdID: pr.File.HouseholdID, Path: pr.File.Path, Err: pr.Err})
			continue
		}
		result.ParsedFiles++
		parts[pr.File.Path] = pr.Part
	}

	result.Households = assemble(files, parts, result.Errors)
	return result, nil
}

// parseParallel parses files with a bounded worker pool. done is called
// with the running count after each file.
func parseParallel(files []source.DiscoveredFile, done func(n int)) []source.ParseResult {
	results := make([]source.ParseResult, len(files))
	if len(files) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if done != nil {
					done(int(n))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// assemble merges file parts into one snapshot per household, in file path
// order, skipping households that had any failing file.
func assemble(files []source.DiscoveredFile, parts map[string]model.Snapshot, failed []FileError) []model.Snapshot {
	bad := make(map[string]bool, len(failed))
	for _, fe := range failed {
		bad[fe.HouseholdID] = true
	}

	byHousehold := make(map[string][]model.Snapshot)
	var ids []string
	for _, f := range files {
		if bad[f.HouseholdID] {
			continue
		}
		part, ok := parts[f.Path]
		if !ok {
			continue
		}
		if _, seen := byHousehold[f.HouseholdID]; !seen {
			ids = append(ids, f.HouseholdID)
		}
		byHousehold[f.HouseholdID] = append(byHousehold[f.HouseholdID], part)
	}

	sort.Strings(ids)
	out := make([]model.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, source.Merge(id, byHousehold[id]...))
	}
	return out
}
