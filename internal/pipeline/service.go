// Package pipeline runs one aggregation pass: parse the bundle definition, fetch every
// query, canonicalize links, fold candidates into the persisted catalog, apply
// retention, enrich the newest items and write the catalog back.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/bundlefeed/internal/bundle"
	"horse.fit/bundlefeed/internal/canonical"
	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/enrich"
	"horse.fit/bundlefeed/internal/feed"
	"horse.fit/bundlefeed/internal/globaltime"
	"horse.fit/bundlefeed/internal/store"
	catalogschema "horse.fit/bundlefeed/schema"
)

// Resolver canonicalizes aggregator links.
type Resolver interface {
	Resolve(ctx context.Context, aggregatorURL string) (canonical.Resolution, error)
}

// Enricher augments one item with best-effort metadata.
type Enricher interface {
	Enrich(ctx context.Context, req enrich.Request) (enrich.Result, error)
}

type Options struct {
	BundlesPath string
	CatalogPath string

	RetentionDays int
	MaxTotalItems int
	EnrichLimit   int
	ClipLimit     int

	FetchConcurrency   int
	ResolveConcurrency int
	EnrichConcurrency  int
}

// Service owns one run. The catalog store it builds is written by a single goroutine;
// only fetch, resolve and enrich calls fan out.
type Service struct {
	fetcher  feed.Fetcher
	resolver Resolver
	enricher Enricher
	opts     Options
	logger   zerolog.Logger
}

// Result summarizes a completed run.
type Result struct {
	Catalog       catalog.Catalog
	Fetched       int
	FailedQueries int
	Resolved      int
	Unresolved    int
	Inserted      int
	Enriched      int
}

// NewService wires a run. A nil enricher disables enrichment.
func NewService(fetcher feed.Fetcher, resolver Resolver, enricher Enricher, opts Options, logger zerolog.Logger) *Service {
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 1
	}
	if opts.ResolveConcurrency < 1 {
		opts.ResolveConcurrency = 1
	}
	if opts.EnrichConcurrency < 1 {
		opts.EnrichConcurrency = 1
	}
	return &Service{
		fetcher:  fetcher,
		resolver: resolver,
		enricher: enricher,
		opts:     opts,
		logger:   logger,
	}
}

// Run performs one pass. Only configuration errors and a failed save are returned;
// every fetch, resolve and enrich failure is logged and degraded.
func (s *Service) Run(ctx context.Context) (Result, error) {
	started := time.Now()

	specs, err := LoadQueries(s.opts.BundlesPath)
	if err != nil {
		return Result{}, err
	}
	compiled := bundle.CompileAll(specs)

	s.logger.Info().
		Int("bundles", bundle.CountBundles(specs)).
		Int("queries", len(compiled)).
		Str("bundles_path", s.opts.BundlesPath).
		Msg("run started")

	fetched := feed.FetchAll(ctx, s.fetcher, compiled, s.opts.FetchConcurrency)

	var result Result
	for _, qr := range fetched {
		if qr.Err != nil {
			result.FailedQueries++
			s.logger.Warn().Err(qr.Err).Str("bundle", qr.Spec.Bundle).Str("query", qr.Query).Msg("feed fetch failed")
			continue
		}
		result.Fetched += len(qr.Entries)
		s.logger.Debug().Str("bundle", qr.Spec.Bundle).Str("query", qr.Query).Int("entries", len(qr.Entries)).Msg("feed fetched")
	}

	snapshot, err := store.Load(s.opts.CatalogPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("catalog_path", s.opts.CatalogPath).Msg("previous catalog unusable; starting empty")
	}
	if snapshot.Skipped > 0 || snapshot.Backfilled > 0 {
		s.logger.Info().Int("skipped", snapshot.Skipped).Int("backfilled_ids", snapshot.Backfilled).Msg("repaired previous catalog")
	}
	items := catalog.NewStoreFrom(snapshot.Catalog.Items)

	candidates := buildCandidates(fetched)
	resolved := s.resolveAll(ctx, items, candidates)
	result.Resolved = resolved.resolved
	result.Unresolved = resolved.unresolved

	inserted := make(map[string]struct{})
	for _, candidate := range candidates {
		candidate.CanonicalURL = resolved.canonicalFor(candidate.URL)
		if res := items.Merge(candidate); res.Inserted {
			inserted[res.ID] = struct{}{}
		}
	}
	result.Inserted = len(inserted)

	now := globaltime.UTC()
	retained := catalog.Retain(items.Items(), now, s.opts.RetentionDays, s.opts.MaxTotalItems)
	result.Enriched = s.enrichTop(ctx, retained)

	newItems := 0
	for _, it := range retained {
		if _, ok := inserted[it.ID]; ok {
			newItems++
		}
	}

	result.Catalog = catalog.Assemble(retained, catalog.Meta{
		RunID:              uuid.NewString(),
		RetentionDays:      s.opts.RetentionDays,
		MaxTotalItems:      s.opts.MaxTotalItems,
		BundlesCount:       bundle.CountBundles(specs),
		QueriesCount:       len(specs),
		NewItemsCount:      newItems,
		FailedQueriesCount: result.FailedQueries,
	}, now)

	if err := store.Save(s.opts.CatalogPath, result.Catalog); err != nil {
		return result, fmt.Errorf("save catalog: %w", err)
	}
	s.selfCheck()

	s.logger.Info().
		Str("run_id", result.Catalog.Meta.RunID).
		Int("fetched", result.Fetched).
		Int("failed_queries", result.FailedQueries).
		Int("resolved", result.Resolved).
		Int("unresolved", result.Unresolved).
		Int("inserted", result.Inserted).
		Int("enriched", result.Enriched).
		Int("items", result.Catalog.Meta.ItemsCount).
		Dur("duration", time.Since(started)).
		Msg("run finished")

	return result, nil
}

// selfCheck validates the document just written. A failure is logged, never fatal.
func (s *Service) selfCheck() {
	raw, err := os.ReadFile(s.opts.CatalogPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not re-read saved catalog")
		return
	}
	if _, err := catalogschema.ValidateCatalog(raw); err != nil {
		s.logger.Warn().Err(err).Msg("saved catalog failed validation")
	}
}

// buildCandidates turns fetched entries into catalog candidates in query order.
func buildCandidates(results []feed.QueryResult) []catalog.Item {
	var out []catalog.Item
	for _, qr := range results {
		if qr.Err != nil {
			continue
		}
		for _, entry := range qr.Entries {
			out = append(out, catalog.Item{
				Bundle:      qr.Spec.Bundle,
				Query:       qr.Query,
				Title:       entry.Title,
				Source:      entry.Source,
				URL:         entry.Link,
				GUID:        entry.GUID,
				PublishedTS: entry.PublishedTS,
				Blurb:       catalog.Optional(entry.Blurb),
				ImageURL:    catalog.Optional(entry.ImageURL),
			})
		}
	}
	return out
}

// Prune applies retention and the item cap to the catalog at path without fetching.
func Prune(path string, retentionDays, maxTotalItems int, logger zerolog.Logger) (catalog.Catalog, int, error) {
	snapshot, err := store.Load(path)
	if err != nil {
		// A corrupt catalog is left untouched rather than replaced by an empty one.
		return catalog.Catalog{}, 0, fmt.Errorf("load catalog: %w", err)
	}

	before := len(snapshot.Catalog.Items)
	items := catalog.NewStoreFrom(snapshot.Catalog.Items).Items()
	retained := catalog.Retain(items, globaltime.UTC(), retentionDays, maxTotalItems)

	meta := snapshot.Catalog.Meta
	meta.GeneratedAt = ""
	meta.RetentionDays = retentionDays
	meta.MaxTotalItems = maxTotalItems
	if strings.TrimSpace(meta.RunID) == "" {
		meta.RunID = uuid.NewString()
	}
	cat := catalog.Assemble(retained, meta, globaltime.UTC())

	if err := store.Save(path, cat); err != nil {
		return cat, 0, fmt.Errorf("save catalog: %w", err)
	}
	removed := before - len(retained)
	logger.Info().Int("before", before).Int("after", len(retained)).Int("removed", removed).Msg("catalog pruned")
	return cat, removed, nil
}
