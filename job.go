package bqtools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// JobState is the state of an asynchronous warehouse job.
type JobState string

// Job states reported by the warehouse.
const (
	Pending JobState = "PENDING"
	Running JobState = "RUNNING"
	Done    JobState = "DONE"
)

const defaultPollInterval = time.Second

// Job is an asynchronous warehouse job such as a load or a query.
type Job interface {
	ID() string
	// Status fetches the current status from the warehouse.
	Status(context.Context) (*JobStatus, error)
}

// ErrorDetail is a structured error reported by the warehouse.
type ErrorDetail struct {
	Reason   string `json:"reason,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (d *ErrorDetail) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.Location != "" {
		return fmt.Sprintf("%s: %s (%s)", d.Reason, d.Message, d.Location)
	}
	return fmt.Sprintf("%s: %s", d.Reason, d.Message)
}

// JobStatus is a snapshot of a job.
type JobStatus struct {
	State JobState `json:"state"`

	// Err is set when a finished job failed.
	Err *ErrorDetail `json:"error,omitempty"`
	// Errors holds every error reported while the job ran, e.g. one per bad row.
	Errors []*ErrorDetail `json:"errors,omitempty"`

	TotalBytesProcessed int64 `json:"total_bytes_processed"`
	TotalBytesBilled    int64 `json:"total_bytes_billed"`
}

// Done reports whether the job reached a terminal state.
func (s *JobStatus) Done() bool {
	return s.State == Done
}

// JobError is returned when a job finishes with an error payload.
type JobError struct {
	JobID  string
	Err    *ErrorDetail
	Errors []*ErrorDetail
}

func (e *JobError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "job %s failed: %s", e.JobID, e.Err)
	for _, d := range e.Errors {
		fmt.Fprintf(&b, "\n  %s", d)
	}
	return b.String()
}

// WaitForJob blocks until j is done. A job which finished with an error
// results in *JobError.
func (c *Client) WaitForJob(ctx context.Context, j Job) (*JobStatus, error) {
	l := log.Ctx(ctx)

	for {
		status, err := j.Status(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to get status of job %s: %w", j.ID(), err)
		}

		if status.Done() {
			if status.Err != nil {
				l.Error().Str("job", j.ID()).Msgf("job failed: %s", status.Err)
				return status, &JobError{JobID: j.ID(), Err: status.Err, Errors: status.Errors}
			}
			l.Debug().Str("job", j.ID()).Msg("job done")
			return status, nil
		}

		l.Debug().Str("job", j.ID()).Str("state", string(status.State)).Msg("waiting for job")

		t := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, xerrors.Errorf("stopped waiting for job %s: %w", j.ID(), ctx.Err())
		case <-t.C:
		}
	}
}
