package heatmap

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// Accumulate sums full-timeline counts across recordings. Addition commutes,
// so the order of recs never changes the result.
func Accumulate(m *layout.Map, recs []*trace.Recording, opts Options) CountTable {
	total := seed(m)
	src := opts.source()
	for _, r := range recs {
		entries := r.Entries()
		for i := range entries {
			chargeEntry(total, &entries[i], src)
		}
	}
	return total
}

// AccumulateContext computes the same table as Accumulate but counts each
// recording on its own worker and merges the partial tables afterwards.
// workers <= 0 uses one worker per CPU.
func AccumulateContext(ctx context.Context, m *layout.Map, recs []*trace.Recording, opts Options, workers int) (CountTable, error) {
	if len(recs) == 0 {
		return seed(m), nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	partials := make([]CountTable, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = Counts(m, r, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := seed(m)
	for _, p := range partials {
		total.Merge(p)
	}
	return total, nil
}
