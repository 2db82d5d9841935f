package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"horse.fit/bundlefeed/internal/bundle"
	"horse.fit/bundlefeed/internal/cli"
	"horse.fit/bundlefeed/internal/pipeline"
)

func runQueries(args []string) int {
	fs := flag.NewFlagSet("queries", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	bundlesPath := fs.String("bundles", "", "Bundle definition document (overrides BUNDLES_PATH)")

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
	path := override(*bundlesPath, cfg.BundlesPath)

	specs, err := pipeline.LoadQueries(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUNDLE\tQUERY")
	for _, compiled := range bundle.CompileAll(specs) {
		fmt.Fprintf(tw, "%s\t%s\n", compiled.Spec.Bundle, compiled.Query)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	fmt.Printf("bundles=%d queries=%d\n", bundle.CountBundles(specs), len(specs))
	return 0
}
