package zspatial

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// QueryAll runs one single-object join per query against idx and returns
// the pairs of each query in query order.
//
// Queries run concurrently, at most GOMAXPROCS at a time or the resource
// controller's join limit if one is configured. The first failing query
// cancels the others and its error is returned.
func (j *SpatialJoin) QueryAll(ctx context.Context, queries []SpatialObject, idx *SpatialIndex) ([][]Pair, error) {
	results := make([][]Pair, len(queries))

	limit := runtime.GOMAXPROCS(0)
	if n := j.opts.rc.Config().MaxConcurrentJoins; n > 0 {
		limit = int(min(n, int64(limit)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, q := range queries {
		g.Go(func() error {
			it, err := j.QueryIterator(gctx, q, idx)
			if err != nil {
				return err
			}
			defer it.Close()

			var pairs []Pair
			for it.Next() {
				pairs = append(pairs, it.Pair())
			}
			if err := it.Err(); err != nil {
				return err
			}
			results[i] = pairs
			return nil
		})
	}

	err := g.Wait()
	total := 0
	for _, r := range results {
		total += len(r)
	}
	j.opts.logger.LogQueryAll(ctx, len(queries), total, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}
