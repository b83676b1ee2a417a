package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.prescribing.dev/bqtools"
	"golang.org/x/xerrors"
)

const (
	envProject      = "BIGQUERY_PROJECT_ID"
	envSlackToken   = "SLACK_TOKEN"
	envSlackChannel = "SLACK_CHANNEL"

	defaultProject = "ebmdatalab"
)

type app struct {
	project        string
	envFile        string
	logLevel       string
	pretty         bool
	pollInterval   time.Duration
	stagingDir     string
	resultsProject string
	resultsDataset string

	// newWarehouse is replaced in tests.
	newWarehouse func(ctx context.Context, project string) (bqtools.Warehouse, func() error, error)
}

func newApp() *app {
	return &app{
		newWarehouse: func(ctx context.Context, project string) (bqtools.Warehouse, func() error, error) {
			w, err := bqtools.NewBigQueryWarehouse(ctx, project)
			if err != nil {
				return nil, nil, err
			}
			return w, w.Close, nil
		},
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bqtools",
		Short: "Load prescribing data into BigQuery and run aggregation queries",
		Long: `bqtools loads CSV/XLS files, Cloud Storage objects and PostgreSQL tables
into BigQuery, replacing the destination table on every load, and runs queries
whose results are written to the results dataset.

Database loads read DB_NAME, DB_USER, DB_PASS and DB_HOST from the environment
or from a .env file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.project, "project", "", "BigQuery project (default $"+envProject+" or "+defaultProject+")")
	f.StringVar(&a.envFile, "env-file", "", "load environment variables from this file instead of .env")
	f.StringVar(&a.logLevel, "log-level", "info", "log level")
	f.BoolVar(&a.pretty, "pretty", false, "print human friendly logs")
	f.DurationVar(&a.pollInterval, "poll-interval", time.Second, "interval between job status checks")
	f.StringVar(&a.stagingDir, "staging-dir", "", "directory for staging files (default system temp dir)")
	f.StringVar(&a.resultsProject, "results-project", "ebmdatalab", "project of the query results dataset")
	f.StringVar(&a.resultsDataset, "results-dataset", "measures", "dataset query results are written to")

	cmd.AddCommand(
		a.loadFileCmd(),
		a.loadObjectCmd(),
		a.loadPostgresCmd(),
		a.refreshCmd(),
		a.queryCmd(),
		a.rowsCmd(),
	)

	return cmd
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return xerrors.Errorf("failed to load %s: %w", a.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	if a.project == "" {
		p, err := bqtools.EnvSetting(envProject, defaultProject)
		if err != nil {
			return err
		}
		a.project = p
	}

	return nil
}

func (a *app) client(ctx context.Context) (*bqtools.Client, func(), error) {
	w, closeFn, err := a.newWarehouse(ctx, a.project)
	if err != nil {
		return nil, nil, err
	}

	opts := []bqtools.Option{
		bqtools.WithLogLevel(a.logLevel),
		bqtools.WithPollInterval(a.pollInterval),
		bqtools.WithStagingDir(a.stagingDir),
		bqtools.WithResultsTable(a.resultsProject, a.resultsDataset),
	}
	if a.pretty {
		opts = append(opts, bqtools.WithPrettyLogging())
	}
	if token := os.Getenv(envSlackToken); token != "" {
		opts = append(opts, bqtools.WithNotifier(&bqtools.SlackNotifier{
			Token:    token,
			Channel:  os.Getenv(envSlackChannel),
			Username: "bqtools",
		}))
	}

	c, err := bqtools.New(w, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return c, func() { closeFn() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
