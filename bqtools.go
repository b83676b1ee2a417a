package bqtools

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Client loads data into a warehouse and runs queries against it.
type Client struct {
	warehouse Warehouse

	mu        sync.Mutex
	extractor extractor
	unloader  unloader
	notifier  Notifier

	logLevel      string
	prettyLogging bool
	logger        zerolog.Logger

	pollInterval   time.Duration
	stagingDir     string
	diagnostics    io.Writer
	resultsProject string
	resultsDataset string

	now func() time.Time
}

const (
	defaultResultsProject = "ebmdatalab"
	defaultResultsDataset = "measures"
)

// New builds a Client which talks to w.
func New(w Warehouse, opts ...Option) (*Client, error) {
	if w == nil {
		return nil, xerrors.New("warehouse is required")
	}

	c := &Client{
		warehouse:      w,
		unloader:       &pgUnloader{},
		logLevel:       "info",
		pollInterval:   defaultPollInterval,
		diagnostics:    os.Stderr,
		resultsProject: defaultResultsProject,
		resultsDataset: defaultResultsDataset,
		now:            time.Now,
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	lv, err := zerolog.ParseLevel(c.logLevel)
	if err != nil {
		return nil, xerrors.Errorf("invalid log level %q: %w", c.logLevel, err)
	}

	var out io.Writer = os.Stderr
	if c.prettyLogging {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	c.logger = zerolog.New(out).Level(lv).With().Timestamp().Logger()

	return c, nil
}

// withLogger attaches the client logger unless ctx already carries one.
func (c *Client) withLogger(ctx context.Context) context.Context {
	if zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled {
		return ctx
	}
	return c.logger.WithContext(ctx)
}
