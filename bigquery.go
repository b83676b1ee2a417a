package bqtools

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"golang.org/x/xerrors"
)

// BigQueryWarehouse is a Warehouse backed by BigQuery.
type BigQueryWarehouse struct {
	project string
	opts    []option.ClientOption

	mu      sync.Mutex
	clients map[string]*bigquery.Client
}

var _ Warehouse = (*BigQueryWarehouse)(nil)

// NewBigQueryWarehouse builds a warehouse whose default project is project.
// Credentials are resolved the way the BigQuery client does, unless opts
// override them.
func NewBigQueryWarehouse(ctx context.Context, project string, opts ...option.ClientOption) (*BigQueryWarehouse, error) {
	bq, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", project, err)
	}

	return &BigQueryWarehouse{
		project: project,
		opts:    opts,
		clients: map[string]*bigquery.Client{project: bq},
	}, nil
}

// Close closes every client the warehouse opened.
func (w *BigQueryWarehouse) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var result *multierror.Error
	for p, c := range w.clients {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, xerrors.Errorf("failed to close client for %s: %w", p, err))
		}
		delete(w.clients, p)
	}

	return result.ErrorOrNil()
}

func (w *BigQueryWarehouse) client(ctx context.Context, project string) (*bigquery.Client, error) {
	if project == "" {
		project = w.project
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if c, ok := w.clients[project]; ok {
		return c, nil
	}

	c, err := bigquery.NewClient(ctx, project, w.opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", project, err)
	}
	w.clients[project] = c

	return c, nil
}

// EnsureTable implements Warehouse.
func (w *BigQueryWarehouse) EnsureTable(ctx context.Context, dataset, table string, schema Schema) error {
	c, err := w.client(ctx, "")
	if err != nil {
		return err
	}

	t := c.Dataset(dataset).Table(table)

	_, err = t.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		return xerrors.Errorf("failed to get metadata of %s.%s: %w", dataset, table, err)
	}

	md := &bigquery.TableMetadata{Schema: toBigQuerySchema(schema)}
	if err := t.Create(ctx, md); err != nil && !hasStatus(err, http.StatusConflict) {
		return xerrors.Errorf("failed to create %s.%s: %w", dataset, table, err)
	}

	return nil
}

// Load implements Warehouse.
func (w *BigQueryWarehouse) Load(ctx context.Context, dataset, table string, schema Schema, r io.Reader) (Job, error) {
	c, err := w.client(ctx, "")
	if err != nil {
		return nil, err
	}

	src := bigquery.NewReaderSource(r)
	src.SourceFormat = bigquery.CSV
	src.Schema = toBigQuerySchema(schema)

	loader := c.Dataset(dataset).Table(table).LoaderFrom(src)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.JobID = "bqtools_load_" + uuid.NewString()

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to run bigquery load job: %w", err)
	}

	return &bigQueryJob{job: job}, nil
}

// Query implements Warehouse.
func (w *BigQueryWarehouse) Query(ctx context.Context, cfg *QueryJobConfig) (Job, error) {
	c, err := w.client(ctx, cfg.Project)
	if err != nil {
		return nil, err
	}

	q := c.Query(cfg.SQL)
	q.UseLegacySQL = cfg.UseLegacy
	// Query cache stays enabled.
	q.AllowLargeResults = true
	q.Dst = c.DatasetInProject(cfg.DstProject, cfg.DstDataset).Table(cfg.DstTable)
	q.CreateDisposition = bigquery.CreateIfNeeded
	q.WriteDisposition = bigquery.WriteTruncate
	q.JobTimeout = cfg.Timeout
	q.JobID = "bqtools_query_" + uuid.NewString()

	job, err := q.Run(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to run bigquery query job: %w", err)
	}

	return &bigQueryJob{job: job}, nil
}

// ReadPage implements Warehouse.
func (w *BigQueryWarehouse) ReadPage(ctx context.Context, project, dataset, table string, pageSize int, pageToken string) (*Page, error) {
	c, err := w.client(ctx, project)
	if err != nil {
		return nil, err
	}

	t := c.Dataset(dataset).Table(table)
	it := t.Read(ctx)

	var rows [][]bigquery.Value
	next, err := iterator.NewPager(it, pageSize, pageToken).NextPage(&rows)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s.%s: %w", dataset, table, err)
	}

	schema := it.Schema
	if schema == nil {
		md, err := t.Metadata(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to get metadata of %s.%s: %w", dataset, table, err)
		}
		schema = md.Schema
	}

	p := &Page{
		Fields:        make([]string, len(schema)),
		Rows:          make([][]any, len(rows)),
		NextPageToken: next,
	}
	for i, f := range schema {
		p.Fields[i] = f.Name
	}
	for i, r := range rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		p.Rows[i] = row
	}

	return p, nil
}

type bigQueryJob struct {
	job *bigquery.Job
}

func (j *bigQueryJob) ID() string {
	return j.job.ID()
}

func (j *bigQueryJob) Status(ctx context.Context) (*JobStatus, error) {
	st, err := j.job.Status(ctx)
	if err != nil {
		return nil, err
	}

	s := &JobStatus{State: fromBigQueryState(st.State)}

	if err := st.Err(); err != nil {
		s.Err = toErrorDetail(err)
	}
	for _, e := range st.Errors {
		if e == nil {
			continue
		}
		s.Errors = append(s.Errors, &ErrorDetail{Reason: e.Reason, Location: e.Location, Message: e.Message})
	}

	if st.Statistics != nil {
		s.TotalBytesProcessed = st.Statistics.TotalBytesProcessed
		if qs, ok := st.Statistics.Details.(*bigquery.QueryStatistics); ok {
			s.TotalBytesBilled = qs.TotalBytesBilled
		}
	}

	return s, nil
}

func fromBigQueryState(s bigquery.State) JobState {
	switch s {
	case bigquery.Done:
		return Done
	case bigquery.Running:
		return Running
	default:
		return Pending
	}
}

func toErrorDetail(err error) *ErrorDetail {
	var e *bigquery.Error
	if errors.As(err, &e) {
		return &ErrorDetail{Reason: e.Reason, Location: e.Location, Message: e.Message}
	}
	return &ErrorDetail{Message: err.Error()}
}

func toBigQuerySchema(s Schema) bigquery.Schema {
	bs := make(bigquery.Schema, len(s))
	for i, f := range s {
		bs[i] = &bigquery.FieldSchema{Name: f.Name, Type: bigquery.FieldType(f.Type)}
	}
	return bs
}

func hasStatus(err error, code int) bool {
	var e *googleapi.Error
	return errors.As(err, &e) && e.Code == code
}
