package pipeline

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"horse.fit/bundlefeed/internal/catalog"
)

type resolutions struct {
	byURL      map[string]string
	resolved   int
	unresolved int
}

func (r resolutions) canonicalFor(rawURL string) string {
	return r.byURL[strings.TrimSpace(rawURL)]
}

// resolveAll canonicalizes every distinct raw URL among candidates. URLs the store
// already knows a canonical form for are reused without a network call.
func (s *Service) resolveAll(ctx context.Context, known *catalog.Store, candidates []catalog.Item) resolutions {
	out := resolutions{byURL: make(map[string]string)}

	var pending []string
	seen := make(map[string]struct{})
	for _, c := range candidates {
		raw := strings.TrimSpace(c.URL)
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		if existing := known.CanonicalFor(raw); existing != "" {
			out.byURL[raw] = existing
			continue
		}
		pending = append(pending, raw)
	}
	if len(pending) == 0 || s.resolver == nil {
		out.unresolved = len(pending)
		return out
	}

	found := make([]string, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ResolveConcurrency)
	for i, raw := range pending {
		g.Go(func() error {
			res, err := s.resolver.Resolve(gctx, raw)
			if err != nil {
				s.logger.Debug().Err(err).Str("url", raw).Msg("canonical url unresolved")
				return nil
			}
			found[i] = res.URL
			return nil
		})
	}
	_ = g.Wait()

	for i, raw := range pending {
		if found[i] == "" {
			out.unresolved++
			continue
		}
		out.byURL[raw] = found[i]
		out.resolved++
	}
	return out
}
