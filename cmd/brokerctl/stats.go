package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"
)

type statsCmd struct {
	configPath string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show store-level report statistics" }
func (*statsCmd) Usage() string {
	return `stats [-config <dir>]

  Prints report counts by broker and processing status, plus imports over the
  last 24 hours.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", ".", "Directory containing config.yaml")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.close()

	stats, err := rt.reports.Statistics(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading statistics: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Total reports: %d\n", stats.TotalReports)
	fmt.Printf("Imported in last 24h: %d\n", stats.RecentImports24h)

	fmt.Println("By broker:")
	for _, broker := range sortedKeys(stats.ByBroker) {
		fmt.Printf("  %-14s %d\n", broker, stats.ByBroker[broker])
	}
	fmt.Println("By status:")
	for _, status := range sortedKeys(stats.ByStatus) {
		fmt.Printf("  %-14s %d\n", status, stats.ByStatus[status])
	}
	return subcommands.ExitSuccess
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
