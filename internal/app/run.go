package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/bundlefeed/internal/canonical"
	"horse.fit/bundlefeed/internal/cli"
	"horse.fit/bundlefeed/internal/config"
	"horse.fit/bundlefeed/internal/enrich"
	"horse.fit/bundlefeed/internal/feed"
	"horse.fit/bundlefeed/internal/language"
	"horse.fit/bundlefeed/internal/logging"
	"horse.fit/bundlefeed/internal/pipeline"
)

func runAggregate(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	bundlesPath := fs.String("bundles", "", "Bundle definition document (overrides BUNDLES_PATH)")
	catalogPath := fs.String("catalog", "", "Catalog JSON path (overrides CATALOG_PATH)")
	timeout := fs.Duration("timeout", 0, "Overall run deadline (0 = none)")
	noEnrich := fs.Bool("no-enrich", false, "Skip page enrichment and clipping")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *timeout < 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be >= 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	cfg.BundlesPath = override(*bundlesPath, cfg.BundlesPath)
	cfg.CatalogPath = override(*catalogPath, cfg.CatalogPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, *timeout)
		defer timeoutCancel()
	}

	var enricher pipeline.Enricher
	if !*noEnrich {
		enricher = newEnricher(cfg)
	}

	svc := pipeline.NewService(newFetcher(cfg), newResolver(cfg), enricher, pipelineOptions(cfg), logging.Component(logger, "pipeline"))
	result, err := svc.Run(ctx)
	if err != nil {
		if pipeline.IsConfigError(err) {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		} else {
			logger.Error().Err(err).Msg("run failed")
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		}
		return 1
	}

	meta := result.Catalog.Meta
	fmt.Printf("run_id=%s items=%d new=%d fetched=%d failed_queries=%d resolved=%d unresolved=%d enriched=%d\n",
		meta.RunID, meta.ItemsCount, meta.NewItemsCount, result.Fetched, meta.FailedQueriesCount,
		result.Resolved, result.Unresolved, result.Enriched)
	fmt.Printf("catalog=%s\n", cfg.CatalogPath)
	return 0
}

func newFetcher(cfg *config.Config) *feed.SearchFetcher {
	return feed.NewSearchFetcher(feed.SearchOptions{
		BaseURL:   cfg.FeedBaseURL,
		HL:        cfg.FeedHL,
		GL:        cfg.FeedGL,
		CEID:      cfg.FeedCEID,
		MaxItems:  cfg.MaxItemsPerQuery,
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,

		RatePerSecond: cfg.FeedRatePerSec,
		Burst:         cfg.FeedBurst,
	})
}

func newResolver(cfg *config.Config) *canonical.Resolver {
	return canonical.NewResolver(canonical.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	})
}

func newEnricher(cfg *config.Config) *enrich.Provider {
	return enrich.NewProvider(enrich.Options{
		Scrape: enrich.ScrapeOptions{
			Timeout:        cfg.HTTPTimeout,
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: language.AcceptLanguage(cfg.FeedHL),
		},
		DetectLanguage: cfg.DetectLanguage,
		Clipper:        enrich.NewClipper(cfg.ClipArgs(), cfg.ClipDir, clipTimeout(cfg.HTTPTimeout)),
	})
}

// clipTimeout gives document rendering more room than a single page fetch.
func clipTimeout(httpTimeout time.Duration) time.Duration {
	return 5 * httpTimeout
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		BundlesPath:        cfg.BundlesPath,
		CatalogPath:        cfg.CatalogPath,
		RetentionDays:      cfg.RetentionDays,
		MaxTotalItems:      cfg.MaxTotalItems,
		EnrichLimit:        cfg.EnrichLimit,
		ClipLimit:          cfg.ClipLimit,
		FetchConcurrency:   cfg.FetchConcurrency,
		ResolveConcurrency: cfg.ResolveConcurrency,
		EnrichConcurrency:  cfg.EnrichConcurrency,
	}
}
