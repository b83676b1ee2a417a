package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.prescribing.dev/bqtools"
	"golang.org/x/xerrors"
)

type queryFlags struct {
	table    string
	sql      string
	sqlFile  string
	legacy   bool
	querySet string
	name     string
	params   map[string]string
}

func (f *queryFlags) request(project string) (*bqtools.QueryRequest, error) {
	if f.querySet != "" {
		if f.name == "" {
			return nil, xerrors.New("--name is required with --query-set")
		}
		s, err := bqtools.LoadQuerySet(f.querySet)
		if err != nil {
			return nil, err
		}
		req, err := s.Request(f.name, project, f.params)
		if err != nil {
			return nil, err
		}
		if f.table != "" {
			req.Table = f.table
		}
		return req, nil
	}

	sql := f.sql
	if f.sqlFile != "" {
		b, err := os.ReadFile(f.sqlFile)
		if err != nil {
			return nil, xerrors.Errorf("failed to read %s: %w", f.sqlFile, err)
		}
		sql = string(b)
	}
	if sql == "" {
		return nil, xerrors.New("one of --sql, --sql-file or --query-set is required")
	}
	if f.table == "" {
		return nil, xerrors.New("--table is required")
	}

	return &bqtools.QueryRequest{Project: project, Table: f.table, SQL: sql, Legacy: f.legacy}, nil
}

func (a *app) queryCmd() *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query and replace a results table with its output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := qf.request(a.project)
			if err != nil {
				return err
			}

			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := c.Query(cmd.Context(), req)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&qf.table, "table", "", "results table")
	fs.StringVar(&qf.sql, "sql", "", "query text")
	fs.StringVar(&qf.sqlFile, "sql-file", "", "read the query from this file")
	fs.BoolVar(&qf.legacy, "legacy", false, "use legacy SQL")
	fs.StringVar(&qf.querySet, "query-set", "", "YAML file of named queries")
	fs.StringVar(&qf.name, "name", "", "query name in --query-set")
	fs.StringToStringVar(&qf.params, "param", nil, "template parameter, e.g. --param month=2017-01-01")

	return cmd
}
