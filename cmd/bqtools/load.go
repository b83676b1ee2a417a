package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.prescribing.dev/bqtools"
	"go.prescribing.dev/bqtools/contrib/prescribing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/xerrors"
)

type loadFlags struct {
	dataset   string
	table     string
	schema    string
	transform string
	encoding  string
	format    string
	sheet     int
	skipRows  int
}

func (f *loadFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dataset, "dataset", prescribing.Dataset, "destination dataset")
	fs.StringVar(&f.table, "table", "", "destination table (default schema name)")
	fs.StringVar(&f.schema, "schema", "", "schema name: "+strings.Join(prescribing.SchemaNames(), ", "))
	fs.StringVar(&f.transform, "transform", "auto", `transform name, "auto" for the schema's own or "none"`)
	fs.StringVar(&f.encoding, "encoding", "", "source encoding, e.g. windows-1252 (default UTF-8)")
	fs.StringVar(&f.format, "format", "csv", "source format: csv or xls")
	fs.IntVar(&f.sheet, "sheet", 0, "sheet index for xls sources")
	fs.IntVar(&f.skipRows, "skip-rows", 0, "number of leading rows to skip")
}

func (f *loadFlags) request() (*bqtools.LoadRequest, error) {
	if f.schema == "" {
		return nil, xerrors.New("--schema is required")
	}

	schema, err := prescribing.Schema(f.schema)
	if err != nil {
		return nil, err
	}

	req := &bqtools.LoadRequest{
		Dataset:         f.dataset,
		Table:           f.table,
		Schema:          schema,
		SkipLeadingRows: f.skipRows,
	}
	if req.Table == "" {
		req.Table = f.schema
	}

	switch f.transform {
	case "auto":
		req.Transform, err = prescribing.TransformFor(f.schema)
	case "none", "":
	default:
		req.Transform, err = prescribing.TransformFor(f.transform)
	}
	if err != nil {
		return nil, err
	}

	switch f.format {
	case "csv":
		req.Parser = bqtools.CSVParser()
	case "xls":
		req.Parser = bqtools.XLSParser(f.sheet)
	default:
		return nil, xerrors.Errorf("unknown format %q", f.format)
	}

	if f.encoding != "" {
		enc, err := ianaindex.IANA.Encoding(f.encoding)
		if err != nil {
			return nil, xerrors.Errorf("unknown encoding %q: %w", f.encoding, err)
		}
		if enc == nil {
			return nil, xerrors.Errorf("unsupported encoding %q", f.encoding)
		}
		req.Encoding = enc
	}

	return req, nil
}

type loadSummary struct {
	Table string `json:"table"`
	JobID string `json:"job_id"`
	Rows  int    `json:"rows"`
}

func summarize(req *bqtools.LoadRequest, res *bqtools.LoadResult) *loadSummary {
	return &loadSummary{Table: req.Dataset + "." + req.Table, JobID: res.Job.ID(), Rows: res.Rows}
}

func (a *app) loadFileCmd() *cobra.Command {
	var lf loadFlags

	cmd := &cobra.Command{
		Use:   "load-file PATH",
		Short: "Replace a table with the rows of a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := lf.request()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			req.Source = f

			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := c.Load(cmd.Context(), req)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), summarize(req, res))
		},
	}
	lf.register(cmd.Flags())

	return cmd
}

func (a *app) loadObjectCmd() *cobra.Command {
	var lf loadFlags

	cmd := &cobra.Command{
		Use:   "load-object gs://BUCKET/NAME",
		Short: "Replace a table with the rows of a Cloud Storage object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := bqtools.ParseObject(args[0])
			if err != nil {
				return err
			}

			req, err := lf.request()
			if err != nil {
				return err
			}

			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := c.LoadObject(cmd.Context(), obj, req)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), summarize(req, res))
		},
	}
	lf.register(cmd.Flags())

	return cmd
}

func (a *app) loadPostgresCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "load-pg TABLE",
		Short:     "Replace a table with the rows of its PostgreSQL source",
		Long:      "TABLE is one of: " + strings.Join(prescribing.PostgresTables(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: prescribing.PostgresTables(),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := prescribing.PostgresRequest(args[0])
			if err != nil {
				return err
			}

			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := c.LoadFromPostgres(cmd.Context(), req)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), &loadSummary{
				Table: req.Dataset + "." + req.Table,
				JobID: res.Job.ID(),
				Rows:  res.Rows,
			})
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload every PostgreSQL sourced table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concurrency < 1 {
				return xerrors.Errorf("--concurrency must be at least 1: %d", concurrency)
			}

			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tables := prescribing.PostgresTables()
			summaries := make([]*loadSummary, len(tables))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for i, name := range tables {
				i, name := i, name
				g.Go(func() error {
					req, err := prescribing.PostgresRequest(name)
					if err != nil {
						return err
					}
					res, err := c.LoadFromPostgres(ctx, req)
					if err != nil {
						return xerrors.Errorf("failed to refresh %s: %w", name, err)
					}
					summaries[i] = &loadSummary{Table: req.Dataset + "." + req.Table, JobID: res.Job.ID(), Rows: res.Rows}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of tables loaded at once")

	return cmd
}
