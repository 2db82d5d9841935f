package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/bundlefeed/internal/cli"
	"horse.fit/bundlefeed/internal/logging"
	"horse.fit/bundlefeed/internal/pipeline"
)

func runPrune(args []string) int {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	catalogPath := fs.String("catalog", "", "Catalog JSON path (overrides CATALOG_PATH)")
	retentionDays := fs.Int("retention-days", 0, "Retention window in days (overrides RETENTION_DAYS)")
	maxItems := fs.Int("max-items", 0, "Total item cap (overrides MAX_TOTAL_ITEMS)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *retentionDays < 0 || *maxItems < 0 {
		fmt.Fprintln(os.Stderr, "--retention-days and --max-items must be >= 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	path := override(*catalogPath, cfg.CatalogPath)
	days := cfg.RetentionDays
	if *retentionDays > 0 {
		days = *retentionDays
	}
	limit := cfg.MaxTotalItems
	if *maxItems > 0 {
		limit = *maxItems
	}

	cat, removed, err := pipeline.Prune(path, days, limit, logging.Component(logger, "prune"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Prune failed: %v\n", err)
		return 1
	}
	fmt.Printf("prune items=%d removed=%d retention_days=%d max_items=%d catalog=%s\n",
		cat.Meta.ItemsCount, removed, days, limit, path)
	return 0
}
