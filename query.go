package bqtools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	queryTimeout = 100 * time.Second

	bytesPerGB = 1024 * 1024 * 1024
	// USD per TB billed.
	costPerTB = 5.0
)

var legacyRefRE = regexp.MustCompile(`\[(.+?):(.+?)\.(.+?)\]`)

// RewriteLegacyRefs rewrites legacy table references like
// [project:dataset.table] into project.dataset.table.
func RewriteLegacyRefs(sql string) string {
	return legacyRefRE.ReplaceAllString(sql, "${1}.${2}.${3}")
}

// QueryRequest describes a query whose results replace Table in the results
// dataset.
type QueryRequest struct {
	// Project runs and is billed for the job.
	Project string
	Table   string
	SQL     string
	// Legacy runs SQL in the legacy dialect. Otherwise legacy table
	// references are rewritten before submission.
	Legacy bool
}

// Annotations are figures derived from a finished query.
type Annotations struct {
	Query       string  `json:"query"`
	EstCost     float64 `json:"est_cost"`
	Time        float64 `json:"time"`
	GBProcessed float64 `json:"gb_processed"`
}

// QueryResult is a finished query.
type QueryResult struct {
	JobID       string      `json:"job_id"`
	Status      *JobStatus  `json:"status"`
	Annotations Annotations `json:"openp"`
}

// Query runs req and waits until it is done.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	ctx = c.withLogger(ctx)

	res, err := c.query(ctx, req)
	c.notify(ctx, queryResult(c.resultsDataset, req.Table, res, err))

	return res, err
}

func (c *Client) query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	l := log.Ctx(ctx)

	if req.Table == "" {
		return nil, xerrors.New("destination table is required")
	}

	sql := req.SQL
	if !req.Legacy {
		sql = RewriteLegacyRefs(sql)
	}

	l.Info().Msgf("Writing to bigquery table %s", req.Table)
	ctx = withStartedTime(ctx, c.now())

	job, err := c.warehouse.Query(ctx, &QueryJobConfig{
		Project:    req.Project,
		SQL:        sql,
		UseLegacy:  req.Legacy,
		DstProject: c.resultsProject,
		DstDataset: c.resultsDataset,
		DstTable:   req.Table,
		Timeout:    queryTimeout,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to submit query: %w", err)
	}

	status, err := c.WaitForJob(ctx, job)
	if err != nil {
		var jerr *JobError
		if errors.As(err, &jerr) {
			printNumbered(c.diagnostics, sql)
		}
		return nil, xerrors.Errorf("query into %s failed: %w", req.Table, err)
	}

	started, _ := startedTimeFrom(ctx)
	a := annotate(sql, status.TotalBytesBilled, c.now().Sub(started))
	l.Info().Msgf("Time %vs, cost $%v", a.Time, a.EstCost)

	return &QueryResult{JobID: job.ID(), Status: status, Annotations: a}, nil
}

func annotate(sql string, bytesBilled int64, elapsed time.Duration) Annotations {
	b := float64(bytesBilled)
	return Annotations{
		Query:       sql,
		EstCost:     round2(b / 1e12 * costPerTB),
		Time:        elapsed.Seconds(),
		GBProcessed: round2(b / bytesPerGB),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// printNumbered writes sql with 1-based line numbers.
func printNumbered(w io.Writer, sql string) {
	if w == nil {
		return
	}
	for i, line := range strings.Split(sql, "\n") {
		fmt.Fprintf(w, "%3d: %s\n", i+1, line)
	}
}
