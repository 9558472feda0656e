package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
)

// ResultCache looks up and stores scores by snapshot fingerprint.
// *store.Cache satisfies it.
type ResultCache interface {
	GetResult(fingerprint string) (model.FinancialHealthResult, error)
	PutResult(r model.FinancialHealthResult) error
}

// ScoreFailure records a household the engine rejected.
type ScoreFailure struct {
	HouseholdID string
	Err         error
}

// ScoreResult holds the output of scoring a batch of households.
type ScoreResult struct {
	Results   []model.FinancialHealthResult // input order
	Failures  []ScoreFailure
	CacheHits int

	// CacheWriteErrors counts scored results the cache failed to store.
	CacheWriteErrors int
}

type scoreOutcome struct {
	result   model.FinancialHealthResult
	err      error
	hit      bool
	writeErr error
}

// ScoreAll computes a health result for each snapshot in parallel. A
// household that fails validation is reported in Failures and never stops
// the others. cache may be nil.
func ScoreAll(snaps []model.Snapshot, opts health.Options, cache ResultCache, progressFn ProgressFunc) ScoreResult {
	outcomes := make([]scoreOutcome, len(snaps))
	if len(snaps) > 0 {
		numWorkers := runtime.GOMAXPROCS(0)
		if numWorkers < 1 {
			numWorkers = 4
		}
		if numWorkers > len(snaps) {
			numWorkers = len(snaps)
		}

		work := make(chan int, len(snaps))
		for i := range snaps {
			work <- i
		}
		close(work)

		var wg sync.WaitGroup
		var processed atomic.Int64
		wg.Add(numWorkers)
		for w := 0; w < numWorkers; w++ {
			go func() {
				defer wg.Done()
				for idx := range work {
					outcomes[idx] = scoreOne(snaps[idx], opts, cache)
					n := processed.Add(1)
					if progressFn != nil {
						progressFn(int(n), len(snaps))
					}
				}
			}()
		}
		wg.Wait()
	}

	var out ScoreResult
	for i, o := range outcomes {
		if o.err != nil {
			out.Failures = append(out.Failures, ScoreFailure{HouseholdID: snaps[i].HouseholdID, Err: o.err})
			continue
		}
		if o.hit {
			out.CacheHits++
		}
		if o.writeErr != nil {
			out.CacheWriteErrors++
		}
		out.Results = append(out.Results, o.result)
	}
	return out
}

// scoreOne never fails on a cache write; writeErr only reports it.
func scoreOne(s model.Snapshot, opts health.Options, cache ResultCache) scoreOutcome {
	if cache != nil {
		if fp, err := health.Fingerprint(s, opts); err == nil {
			// Any lookup error, including store.ErrNotFound, is a miss.
			if r, err := cache.GetResult(fp); err == nil {
				return scoreOutcome{result: r, hit: true}
			}
		}
	}

	r, err := health.Compute(s, opts)
	if err != nil {
		return scoreOutcome{err: err}
	}
	o := scoreOutcome{result: r}
	if cache != nil {
		o.writeErr = cache.PutResult(r)
	}
	return o
}
