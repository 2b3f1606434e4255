// brokerctl drives the statement pipelines from the command line: import the
// inbox, parse stored reports, and inspect the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/brokercursor/brokercursor/internal/config"
	"github.com/brokercursor/brokercursor/internal/db"
	"github.com/brokercursor/brokercursor/internal/logging"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&importCmd{}, "pipelines")
	commander.Register(&parseCmd{}, "pipelines")
	commander.Register(&statsCmd{}, "store")
	commander.Register(&logCmd{}, "store")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// runtime bundles what every subcommand needs: configuration, a live pool
// and the repositories on top of it.
type runtime struct {
	cfg       config.Config
	conn      *db.Connection
	log       *logrus.Logger
	reports   repository.ReportRepository
	importLog repository.ImportLogRepository
}

// openRuntime connects to the store; a database that cannot be reached is a
// hard failure for every subcommand.
func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	log := logging.New(cfg.LogLevel, false)

	conn, err := db.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.RunMigrations(ctx, conn, "./migrations", log); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &runtime{
		cfg:       cfg,
		conn:      conn,
		log:       log,
		reports:   repository.NewReportRepository(conn.Pool),
		importLog: repository.NewImportLogRepository(conn.Pool),
	}, nil
}

func (r *runtime) close() {
	r.conn.Close()
}
