package feed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"horse.fit/bundlefeed/internal/bundle"
)

// QueryResult is the outcome of fetching one compiled query. Err is set when the
// fetch failed; Entries is then empty.
type QueryResult struct {
	Spec    bundle.QuerySpec
	Query   string
	Entries []Entry
	Err     error
}

// FetchAll fetches every query on a pool of at most concurrency workers. Results keep
// the order of queries. A failed query never affects the others.
func FetchAll(ctx context.Context, fetcher Fetcher, queries []bundle.Compiled, concurrency int) []QueryResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]QueryResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, q := range queries {
		g.Go(func() error {
			entries, err := fetcher.Fetch(gctx, q.Query)
			results[i] = QueryResult{
				Spec:    q.Spec,
				Query:   q.Query,
				Entries: entries,
				Err:     err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
