package bqtools

import (
	"errors"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
	"google.golang.org/api/googleapi"
)

func TestFromBigQueryState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     bigquery.State
		expect JobState
	}{
		{in: bigquery.Pending, expect: Pending},
		{in: bigquery.Running, expect: Running},
		{in: bigquery.Done, expect: Done},
		{in: bigquery.StateUnspecified, expect: Pending},
	}

	for _, c := range cases {
		c := c
		t.Run(string(c.expect), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.expect, fromBigQueryState(c.in))
		})
	}
}

func TestToErrorDetail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		in     error
		expect *ErrorDetail
	}{
		{
			name:   "bigquery error",
			in:     &bigquery.Error{Reason: "invalid", Location: "row 2", Message: "bad value"},
			expect: &ErrorDetail{Reason: "invalid", Location: "row 2", Message: "bad value"},
		},
		{
			name:   "wrapped bigquery error",
			in:     xerrors.Errorf("job: %w", &bigquery.Error{Reason: "stopped", Message: "timeout"}),
			expect: &ErrorDetail{Reason: "stopped", Message: "timeout"},
		},
		{
			name:   "plain error",
			in:     errors.New("connection reset"),
			expect: &ErrorDetail{Message: "connection reset"},
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.expect, toErrorDetail(c.in))
		})
	}
}

func TestHasStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		code   int
		expect bool
	}{
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, code: http.StatusNotFound, expect: true},
		{name: "wrapped conflict", err: xerrors.Errorf("create: %w", &googleapi.Error{Code: http.StatusConflict}), code: http.StatusConflict, expect: true},
		{name: "other code", err: &googleapi.Error{Code: http.StatusForbidden}, code: http.StatusNotFound, expect: false},
		{name: "not an api error", err: errors.New("boom"), code: http.StatusNotFound, expect: false},
		{name: "nil", err: nil, code: http.StatusNotFound, expect: false},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.expect, hasStatus(c.err, c.code))
		})
	}
}

func TestToBigQuerySchema(t *testing.T) {
	t.Parallel()

	s := Schema{
		{Name: "code", Type: String},
		{Name: "items", Type: Integer},
		{Name: "cost", Type: Float},
		{Name: "is_generic", Type: Boolean},
		{Name: "month", Type: Timestamp},
	}

	assert.Equal(t, bigquery.Schema{
		{Name: "code", Type: bigquery.StringFieldType},
		{Name: "items", Type: bigquery.IntegerFieldType},
		{Name: "cost", Type: bigquery.FloatFieldType},
		{Name: "is_generic", Type: bigquery.BooleanFieldType},
		{Name: "month", Type: bigquery.TimestampFieldType},
	}, toBigQuerySchema(s))

	assert.Empty(t, toBigQuerySchema(nil))
}
