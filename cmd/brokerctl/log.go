package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/google/subcommands"
)

type logCmd struct {
	configPath string
	operation  string
	outcome    string
	limit      int
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "show recent import-log entries" }
func (*logCmd) Usage() string {
	return `log [-config <dir>] [-operation <import|parse>] [-outcome <status>] [-limit <n>]

  Lists the audit trail newest first. Filter by operation type or outcome.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", ".", "Directory containing config.yaml")
	f.StringVar(&c.operation, "operation", "", "Filter by operation type")
	f.StringVar(&c.outcome, "outcome", "", "Filter by outcome status")
	f.IntVar(&c.limit, "limit", 50, "Maximum entries to show")
}

func (c *logCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.close()

	entries, err := rt.importLog.List(ctx,
		domain.Operation(c.operation), domain.Outcome(c.outcome), c.limit, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: listing import log: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%s  %-7s %-20s", entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Operation, entry.Outcome)
		if entry.FileName != "" {
			line += "  " + entry.FileName
			if entry.Broker != "" {
				line += fmt.Sprintf(" (%s %s %s)", entry.Broker, entry.Account, entry.Period)
			}
		} else {
			line += fmt.Sprintf("  batch: %d processed, %d ok, %d failed",
				entry.FilesProcessed, entry.FilesSuccess, entry.FilesFailed)
		}
		if entry.ErrorSummary != "" {
			line += "  error: " + entry.ErrorSummary
		}
		fmt.Println(line)
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
	}
	return subcommands.ExitSuccess
}
