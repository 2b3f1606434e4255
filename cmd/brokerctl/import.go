package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brokercursor/brokercursor/internal/ingestion"
	"github.com/brokercursor/brokercursor/internal/parsers"

	"github.com/google/subcommands"
)

type importCmd struct {
	configPath string
	inbox      string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import statement files from the inbox into the store" }
func (*importCmd) Usage() string {
	return `import [-config <dir>] [-inbox <dir>]

  Scans the inbox for broker statement files, deduplicates them against the
  store and archives each handled file. Files whose broker or period cannot
  be determined stay in the inbox.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", ".", "Directory containing config.yaml")
	f.StringVar(&c.inbox, "inbox", "", "Override the configured inbox directory")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.close()

	if c.inbox != "" {
		rt.cfg.Paths.Inbox = c.inbox
	}

	svc := ingestion.NewService(rt.reports, rt.importLog, parsers.DefaultRegistry(), rt.cfg, rt.log)
	result, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: import run failed: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Processed %d files: %d imported, %d exact duplicates, %d conflicts, %d semantic duplicates, %d unresolved, %d failed\n",
		result.Processed, result.Imported, result.ExactDuplicates, result.Collisions,
		result.SemanticDuplicates, result.Unresolved, result.Failed)

	if result.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
