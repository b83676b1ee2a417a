package bqtools

import (
	"context"
	"encoding/csv"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	id       string
	statuses []*JobStatus
	err      error

	mu    sync.Mutex
	calls int
}

func doneJob(id string) *fakeJob {
	return &fakeJob{id: id, statuses: []*JobStatus{{State: Done}}}
}

func (j *fakeJob) ID() string { return j.id }

// Status returns the configured statuses in order and then keeps returning
// the last one.
func (j *fakeJob) Status(_ context.Context) (*JobStatus, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return nil, j.err
	}

	i := j.calls
	if i >= len(j.statuses) {
		i = len(j.statuses) - 1
	}
	j.calls++

	return j.statuses[i], nil
}

type fakeWarehouse struct {
	ensureErr error
	ensured   []string

	loadJob     *fakeJob
	loadErr     error
	loaded      [][]string
	stagingPath string
	loadCalls   int

	queryJob *fakeJob
	queryCfg *QueryJobConfig

	// pages maps page tokens to pages. The first page has the empty token.
	pages    map[string]*Page
	readErr  error
	readReqs []string
}

func (w *fakeWarehouse) EnsureTable(_ context.Context, dataset, table string, _ Schema) error {
	w.ensured = append(w.ensured, dataset+"."+table)
	return w.ensureErr
}

func (w *fakeWarehouse) Load(_ context.Context, _, _ string, _ Schema, r io.Reader) (Job, error) {
	w.loadCalls++
	if w.loadErr != nil {
		return nil, w.loadErr
	}

	if f, ok := r.(interface{ Name() string }); ok {
		w.stagingPath = f.Name()
	}

	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	w.loaded = recs

	if w.loadJob == nil {
		w.loadJob = doneJob("load-job")
	}
	return w.loadJob, nil
}

func (w *fakeWarehouse) Query(_ context.Context, cfg *QueryJobConfig) (Job, error) {
	w.queryCfg = cfg
	if w.queryJob == nil {
		w.queryJob = doneJob("query-job")
	}
	return w.queryJob, nil
}

func (w *fakeWarehouse) ReadPage(_ context.Context, _, _, _ string, _ int, token string) (*Page, error) {
	w.readReqs = append(w.readReqs, token)
	if w.readErr != nil {
		return nil, w.readErr
	}
	return w.pages[token], nil
}

type fakeUnloader struct {
	body  string
	err   error
	calls int
	sql   string
	cfg   *DBConfig
}

func (u *fakeUnloader) unload(_ context.Context, cfg *DBConfig, sql string, w io.Writer) (int64, error) {
	u.calls++
	u.cfg = cfg
	u.sql = sql
	if u.err != nil {
		return 0, u.err
	}
	n, err := io.WriteString(w, u.body)
	return int64(n), err
}

func newTestClient(t *testing.T, w Warehouse, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{
		WithLogLevel("disabled"),
		WithPollInterval(time.Millisecond),
		WithStagingDir(t.TempDir()),
	}, opts...)

	c, err := New(w, opts...)
	require.NoError(t, err)

	return c
}

// clock returns the given times in order, then keeps returning the last.
func clock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}
