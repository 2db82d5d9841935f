package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/cli"
	"horse.fit/bundlefeed/internal/store"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	catalogPath := fs.String("catalog", "", "Catalog JSON path (overrides CATALOG_PATH)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, _, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	path := override(*catalogPath, cfg.CatalogPath)

	snap, err := store.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		return 1
	}

	meta := snap.Catalog.Meta
	fmt.Printf("catalog=%s generated_at=%s run_id=%s\n", path, meta.GeneratedAt, meta.RunID)
	fmt.Printf("items=%d new=%d bundles=%d queries=%d failed_queries=%d retention_days=%d\n",
		len(snap.Catalog.Items), meta.NewItemsCount, meta.BundlesCount, meta.QueriesCount,
		meta.FailedQueriesCount, meta.RetentionDays)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUNDLE\tITEMS\tWITH_IMAGE\tWITH_BLURB")
	for _, bc := range catalog.CountByBundle(snap.Catalog.Items) {
		images, blurbs := enrichmentCoverage(snap.Catalog.Items, bc.Bundle)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", bc.Bundle, bc.Items, images, blurbs)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func enrichmentCoverage(items []catalog.Item, bundleName string) (images, blurbs int) {
	for i := range items {
		if items[i].Bundle != bundleName {
			continue
		}
		if !items[i].NeedsImage() {
			images++
		}
		if !items[i].NeedsBlurb() {
			blurbs++
		}
	}
	return images, blurbs
}
