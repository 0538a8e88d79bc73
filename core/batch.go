package core

import (
	"context"
	"runtime"
	"sync"
)

// BatchRequest is one satellite to sample in a batch.
type BatchRequest struct {
	ID    string
	Line1 string
	Line2 string
}

// BatchResult pairs a request ID with its trajectory. Err carries the
// *DegenerateOrbitError, if any; Trajectory is always usable.
type BatchResult struct {
	ID         string
	Trajectory Trajectory
	Err        error
}

// BatchSampler samples many satellites in parallel on a fixed number of
// workers. Each sample is independent, so no state is shared.
type BatchSampler struct {
	workers int
}

// NewBatchSampler creates a sampler; workers <= 0 uses GOMAXPROCS.
func NewBatchSampler(workers int) *BatchSampler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &BatchSampler{workers: workers}
}

// SampleAll samples every request with the same options. Results keep the
// request order. If ctx is cancelled, unfinished entries are left zero and
// ctx.Err() is returned.
func (b *BatchSampler) SampleAll(ctx context.Context, reqs []BatchRequest, opts SampleOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	jobs := make(chan int, b.workers*2)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				req := reqs[idx]
				traj, err := Sample(req.Line1, req.Line2, opts)
				results[idx] = BatchResult{ID: req.ID, Trajectory: traj, Err: err}
			}
		}()
	}

feed:
	for i := range reqs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctx.Err()
}
