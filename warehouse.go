package bqtools

import (
	"context"
	"io"
	"time"
)

// Warehouse is the remote tabular data service every operation talks to.
// BigQuery is the production implementation; tests provide fakes.
type Warehouse interface {
	// EnsureTable creates the table with schema unless it already exists.
	EnsureTable(ctx context.Context, dataset, table string, schema Schema) error

	// Load submits a load job which replaces every row of the table with
	// the CSV read from r.
	Load(ctx context.Context, dataset, table string, schema Schema, r io.Reader) (Job, error)

	// Query submits a query job whose results replace the destination table.
	Query(ctx context.Context, q *QueryJobConfig) (Job, error)

	// ReadPage reads up to pageSize rows starting at pageToken.
	// An empty token reads the first page.
	ReadPage(ctx context.Context, project, dataset, table string, pageSize int, pageToken string) (*Page, error)
}

// QueryJobConfig configures a query job.
type QueryJobConfig struct {
	// Project is the project the job runs and is billed in.
	Project string

	SQL       string
	UseLegacy bool

	DstProject string
	DstDataset string
	DstTable   string

	// Timeout is the server side timeout of the job.
	Timeout time.Duration
}

// Page is one page of a table scan.
type Page struct {
	Fields        []string
	Rows          [][]any
	NextPageToken string
}
