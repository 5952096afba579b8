package cache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the per-item outcome of a batch fetch.
type Result struct {
	Request Request
	Path    string
	Err     error
}

// Summary counts batch outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// FetchBatch fetches every request with at most maxParallel downloads in
// flight. One item's failure never affects its siblings; each result carries
// its own error.
func (m *Manager) FetchBatch(ctx context.Context, reqs []Request, maxParallel int) ([]Result, Summary) {
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([]Result, len(reqs))

	wg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i := range reqs {
		sem <- struct{}{}

		wg.Go(func() error {
			defer func() { <-sem }() // release the slot

			path, err := m.Fetch(ctx, reqs[i])
			results[i] = Result{Request: reqs[i], Path: path, Err: err}

			return nil
		})
	}

	// Workers never return errors; Wait is purely a join.
	_ = wg.Wait()

	summary := Summary{Total: len(reqs)}

	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	return results, summary
}
