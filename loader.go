package bqtools

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// LoadRequest describes one load into a warehouse table. Every load replaces
// all rows of the destination table.
type LoadRequest struct {
	Dataset string
	Table   string
	Schema  Schema

	// Source is read until EOF.
	Source io.Reader

	// Parser defaults to CSVParser.
	Parser Parser

	// Encoding of Source. nil means UTF-8.
	Encoding encoding.Encoding

	// Transform is applied to every record after SkipLeadingRows. Optional.
	Transform       Transform
	SkipLeadingRows int
}

// LoadResult is a finished load.
type LoadResult struct {
	Job    Job
	Status *JobStatus
	// Rows is the number of rows written to the staging file.
	Rows int
}

// Load stages the transformed records of req.Source in a temporary file and
// replaces the destination table with it. It returns once the load job is done.
func (c *Client) Load(ctx context.Context, req *LoadRequest) (*LoadResult, error) {
	ctx = c.withLogger(ctx)

	res, err := c.load(ctx, req)
	c.notify(ctx, loadResult(req.Dataset, req.Table, res, err))

	return res, err
}

// LoadFile loads a local CSV file.
func (c *Client) LoadFile(ctx context.Context, dataset, table, path string, schema Schema, t Transform) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return c.Load(ctx, &LoadRequest{
		Dataset:   dataset,
		Table:     table,
		Schema:    schema,
		Source:    f,
		Transform: t,
	})
}

// LoadObject loads an object in Cloud Storage. req.Source is ignored.
func (c *Client) LoadObject(ctx context.Context, o Object, req *LoadRequest) (*LoadResult, error) {
	ctx = c.withLogger(ctx)

	c.mu.Lock()
	if c.extractor == nil {
		ex, err := newDefaultExtractor(ctx)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.extractor = ex
	}
	ex := c.extractor
	c.mu.Unlock()

	r, closer, err := ex.extract(ctx, o)
	if err != nil {
		return nil, xerrors.Errorf("failed to extract: %w", err)
	}
	defer closer()

	lr := *req
	lr.Source = r

	return c.Load(ctx, &lr)
}

func (c *Client) load(ctx context.Context, req *LoadRequest) (*LoadResult, error) {
	l := log.Ctx(ctx).With().Str("dataset", req.Dataset).Str("table", req.Table).Logger()

	if req.Dataset == "" || req.Table == "" {
		return nil, xerrors.New("dataset and table are required")
	}
	if req.Source == nil {
		return nil, xerrors.New("source is required")
	}
	if err := req.Schema.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid schema for %s.%s: %w", req.Dataset, req.Table, err)
	}

	if err := c.warehouse.EnsureTable(ctx, req.Dataset, req.Table, req.Schema); err != nil {
		return nil, xerrors.Errorf("failed to ensure table: %w", err)
	}

	f, cleanup, err := c.staging(ctx, "bqtools-load-*.csv")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	n, err := c.stage(ctx, req, f)
	if err != nil {
		l.Error().Msgf("failed to stage rows: %v", err)
		return nil, err
	}
	l.Debug().Msgf("staged %d rows in %s", n, f.Name())

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("failed to rewind staging file: %w", err)
	}

	job, err := c.warehouse.Load(ctx, req.Dataset, req.Table, req.Schema, f)
	if err != nil {
		return nil, xerrors.Errorf("failed to submit load job: %w", err)
	}
	l.Info().Str("job", job.ID()).Msgf("loading %d rows", n)

	status, err := c.WaitForJob(ctx, job)
	if err != nil {
		return nil, xerrors.Errorf("failed to load %s.%s: %w", req.Dataset, req.Table, err)
	}

	return &LoadResult{Job: job, Status: status, Rows: n}, nil
}

// stage writes transformed records of req.Source into w as CSV.
func (c *Client) stage(ctx context.Context, req *LoadRequest, w io.Writer) (int, error) {
	var r io.Reader = req.Source
	if req.Encoding != nil {
		r = transform.NewReader(r, req.Encoding.NewDecoder())
	}

	parser := req.Parser
	if parser == nil {
		parser = CSVParser()
	}

	rr, err := parser(ctx, r)
	if err != nil {
		return 0, xerrors.Errorf("failed to parse: %w", err)
	}

	cw := csv.NewWriter(w)
	n := 0

	for line := 1; ; line++ {
		record, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, xerrors.Errorf("failed to read row %d: %w", line, err)
		}

		if line <= req.SkipLeadingRows {
			continue
		}

		if req.Transform != nil {
			record, err = req.Transform(ctx, record)
			if err != nil {
				return n, xerrors.Errorf("failed to transform row %d: %w", line, err)
			}
			if record == nil {
				continue
			}
		}

		if len(record) != len(req.Schema) {
			return n, xerrors.Errorf("row %d has %d fields but schema has %d: %w",
				line, len(record), len(req.Schema), ErrMalformedRow)
		}

		if err := cw.Write(record); err != nil {
			return n, xerrors.Errorf("failed to write row %d: %w", line, err)
		}
		n++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, xerrors.Errorf("failed to write csv: %w", err)
	}

	return n, nil
}

// staging creates a temporary file. The returned func closes and removes it.
func (c *Client) staging(ctx context.Context, pattern string) (*os.File, func(), error) {
	f, err := os.CreateTemp(c.stagingDir, pattern)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to create staging file: %w", err)
	}

	return f, func() {
		l := log.Ctx(ctx)
		if err := f.Close(); err != nil && !xerrors.Is(err, os.ErrClosed) {
			l.Warn().Msgf("failed to close staging file %s: %v", f.Name(), err)
		}
		if err := os.Remove(f.Name()); err != nil {
			l.Warn().Msgf("failed to remove staging file %s: %v", f.Name(), err)
		}
	}, nil
}
