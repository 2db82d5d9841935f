package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/bundlefeed/internal/cli"
	catalogschema "horse.fit/bundlefeed/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
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

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID %s: read failed: %v\n", path, err)
		return 1
	}
	cat, err := catalogschema.ValidateCatalog(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
		return 1
	}

	fmt.Printf("validate ok items=%d catalog=%s\n", len(cat.Items), path)
	return 0
}
