package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/enrich"
)

// enrichTop enriches the newest EnrichLimit items in place and returns how many
// received at least one new field. The first ClipLimit items without a clip also ask
// for one.
func (s *Service) enrichTop(ctx context.Context, items []catalog.Item) int {
	if s.enricher == nil || s.opts.EnrichLimit <= 0 || len(items) == 0 {
		return 0
	}

	limit := min(s.opts.EnrichLimit, len(items))
	requests := make([]enrich.Request, limit)
	clips := 0
	for i := range requests {
		wantClip := clips < s.opts.ClipLimit && catalog.Value(items[i].PDFPath) == ""
		if wantClip {
			clips++
		}
		requests[i] = enrich.Request{Item: items[i], Clip: wantClip}
	}

	results := make([]enrich.Result, limit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EnrichConcurrency)
	for i, req := range requests {
		g.Go(func() error {
			res, err := s.enricher.Enrich(gctx, req)
			if err != nil {
				s.logger.Debug().Err(err).Str("id", req.Item.ID).Msg("enrichment incomplete")
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	enriched := 0
	for i, res := range results {
		if res.Empty() {
			continue
		}
		catalog.MergeFields(&items[i], res.Patch(items[i].ID))
		enriched++
	}
	return enriched
}
