// Package workerpool implements the §5 per-region concurrency model: a
// fixed pool of workers drains a region partition from a shared job channel,
// each worker processing (and committing) one region at a time with no
// shared mutable state between workers. Pull-based fan-out: workers drain a
// pre-filled, closed job channel rather than being pushed individual jobs.
package workerpool

import (
	"context"
	"sync"

	"github.com/jhc00/cmesrc/internal/log"
)

// Result is one region's outcome.
type Result struct {
	RegionID int
	Err      error
}

// Process is the per-region unit of work. Implementations own their own
// persistence connection and must commit their batch before returning, so
// that a cancellation observed mid-pool still leaves consistent state for
// every region that has already returned.
type Process func(ctx context.Context, regionID int) error

// Pool runs Process over a set of region ids with a fixed worker count.
type Pool struct {
	concurrency int
}

// New returns a Pool with the given worker count, clamped to at least 1.
func New(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{concurrency: concurrency}
}

// Run partitions regionIDs (in ascending order) across the pool's workers
// and runs process for each. A worker observing ctx cancellation finishes
// its in-flight region (process decides how to react to ctx internally)
// then stops pulling new work. Results are returned once every worker has
// exited, in no particular order; callers that need deterministic output
// ordering should sort by RegionID.
func (p *Pool) Run(ctx context.Context, regionIDs []int, process Process) []Result {
	jobs := make(chan int, len(regionIDs))
	for _, id := range regionIDs {
		jobs <- id
	}
	close(jobs)

	results := make(chan Result, len(regionIDs))
	var wg sync.WaitGroup

	for w := 0; w < p.concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case regionID, ok := <-jobs:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						log.Infow("workerpool: cancellation observed, worker exiting after draining in-flight region", "worker", workerID)
						return
					}
					err := process(ctx, regionID)
					if err != nil {
						log.Errorf("workerpool: worker %d region %d: %v", workerID, regionID, err)
					}
					results <- Result{RegionID: regionID, Err: err}
				case <-ctx.Done():
					log.Infow("workerpool: cancellation observed, worker exiting after draining in-flight region", "worker", workerID)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(results)

	out := make([]Result, 0, len(regionIDs))
	for r := range results {
		out = append(out, r)
	}
	return out
}
