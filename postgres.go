package bqtools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// PostgresLoadRequest describes a load of a whole PostgreSQL table.
type PostgresLoadRequest struct {
	Dataset string
	Table   string
	Schema  Schema

	// SourceTable may be schema qualified, e.g. "public.frontend_presentation".
	SourceTable string
	// Columns to unload. Defaults to the names of Schema.
	Columns []string

	Transform Transform
}

// unloader writes every row of a table to w as CSV.
type unloader interface {
	unload(ctx context.Context, cfg *DBConfig, sql string, w io.Writer) (int64, error)
}

// LoadFromPostgres unloads req.SourceTable with COPY and loads the result into
// the destination table. Connection parameters come from the environment.
func (c *Client) LoadFromPostgres(ctx context.Context, req *PostgresLoadRequest) (*LoadResult, error) {
	ctx = c.withLogger(ctx)

	res, err := c.loadFromPostgres(ctx, req)
	c.notify(ctx, loadResult(req.Dataset, req.Table, res, err))

	return res, err
}

func (c *Client) loadFromPostgres(ctx context.Context, req *PostgresLoadRequest) (*LoadResult, error) {
	l := log.Ctx(ctx)

	if req.SourceTable == "" {
		return nil, xerrors.New("source table is required")
	}

	cfg, err := DBConfigFromEnv()
	if err != nil {
		return nil, err
	}

	cols := req.Columns
	if len(cols) == 0 {
		cols = req.Schema.Names()
	}
	if len(cols) == 0 {
		return nil, xerrors.Errorf("no columns to unload from %s", req.SourceTable)
	}

	f, cleanup, err := c.staging(ctx, "bqtools-pg-*.csv")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	n, err := c.unloader.unload(ctx, cfg, copySQL(req.SourceTable, cols), f)
	if err != nil {
		return nil, xerrors.Errorf("failed to unload %s: %w", req.SourceTable, err)
	}
	l.Info().Msgf("unloaded %d rows from %s", n, req.SourceTable)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("failed to rewind staging file: %w", err)
	}

	return c.load(ctx, &LoadRequest{
		Dataset:   req.Dataset,
		Table:     req.Table,
		Schema:    req.Schema,
		Source:    f,
		Transform: req.Transform,
	})
}

func copySQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	return fmt.Sprintf("COPY %s(%s) TO STDOUT (FORMAT CSV, NULL '')",
		pgx.Identifier(strings.Split(table, ".")).Sanitize(), strings.Join(quoted, ","))
}

type pgUnloader struct{}

// unload runs sql inside a transaction which is always rolled back or
// committed, and closes the connection on every path.
func (u *pgUnloader) unload(ctx context.Context, cfg *DBConfig, sql string, w io.Writer) (n int64, err error) {
	conn, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		return 0, xerrors.Errorf("failed to connect to %s on %s: %w", cfg.Name, cfg.Host, err)
	}
	defer func() {
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = multierror.Append(err, xerrors.Errorf("failed to close connection: %w", cerr))
		}
	}()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			err = multierror.Append(err, xerrors.Errorf("failed to roll back: %w", rerr))
		}
	}()

	tag, err := tx.Conn().PgConn().CopyTo(ctx, w, sql)
	if err != nil {
		return 0, xerrors.Errorf("failed to copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, xerrors.Errorf("failed to commit: %w", err)
	}

	return tag.RowsAffected(), nil
}
