package bqtools

import (
	"io"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/xerrors"
)

// Option configures Client.
type Option interface {
	apply(*Client) error
}

type optionFunc func(*Client) error

func (f optionFunc) apply(c *Client) error {
	return f(c)
}

// WithPrettyLogging configures Client to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(c *Client) error {
		c.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets a log level such as "debug" or "warn".
func WithLogLevel(level string) Option {
	return optionFunc(func(c *Client) error {
		c.logLevel = level
		return nil
	})
}

// WithPollInterval changes how long WaitForJob sleeps between status checks.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *Client) error {
		if d <= 0 {
			return xerrors.Errorf("poll interval must be positive: %s", d)
		}
		c.pollInterval = d
		return nil
	})
}

// WithStagingDir sets the directory where staging files are created.
// The default is os.TempDir().
func WithStagingDir(dir string) Option {
	return optionFunc(func(c *Client) error {
		c.stagingDir = dir
		return nil
	})
}

// WithNotifier reports the result of each load and query to n.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(c *Client) error {
		c.notifier = n
		return nil
	})
}

// WithDiagnostics sets where failed queries are printed. The default is os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return optionFunc(func(c *Client) error {
		c.diagnostics = w
		return nil
	})
}

// WithResultsTable sets the project and dataset query results are written to.
func WithResultsTable(project, dataset string) Option {
	return optionFunc(func(c *Client) error {
		if project == "" || dataset == "" {
			return xerrors.New("results project and dataset must not be empty")
		}
		c.resultsProject = project
		c.resultsDataset = dataset
		return nil
	})
}

// WithStorageClient uses s to read objects for LoadObject.
func WithStorageClient(s *storage.Client) Option {
	return optionFunc(func(c *Client) error {
		c.extractor = &defaultExtractor{storage: s}
		return nil
	})
}
