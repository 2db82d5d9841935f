package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "run":
		return runAggregate(args[1:])
	case "queries":
		return runQueries(args[1:])
	case "prune":
		return runPrune(args[1:])
	case "stats":
		return runStats(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "bundlefeed CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bundlefeed <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run       Fetch every bundle query and update the catalog")
	fmt.Fprintln(os.Stderr, "  queries   Print the compiled search queries")
	fmt.Fprintln(os.Stderr, "  prune     Apply retention and the item cap to the catalog")
	fmt.Fprintln(os.Stderr, "  stats     Show catalog metadata and per-bundle counts")
	fmt.Fprintln(os.Stderr, "  validate  Validate the catalog against its JSON schema")
	fmt.Fprintln(os.Stderr, "  serve     Start the read-only catalog API")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"bundlefeed <command> -h\" for command-specific flags.")
}
