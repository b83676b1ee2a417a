package bqtools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newHTTPClient(f roundTripperFunc) *http.Client {
	return &http.Client{Transport: f}
}

func slackReply(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{},
	}
}

type recordingNotifier struct {
	results []*Result
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, r *Result) error {
	n.results = append(n.results, r)
	return n.err
}

func TestSlackNotifier(t *testing.T) {
	t.Parallel()

	var sent slackMessage
	var auth string

	client := newHTTPClient(func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			return nil, err
		}
		return slackReply(http.StatusOK, `{"ok":true}`), nil
	})

	n := &SlackNotifier{
		Channel:    "#channel",
		Token:      "token",
		IconEmoji:  ":emoji:",
		Username:   "username",
		HTTPClient: client,
	}

	r := &Result{Operation: OperationLoad, Target: "hscic.prescribing", Rows: 42}

	err := n.Notify(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, "Bearer token", auth)
	assert.Equal(t, slackMessage{
		Channel:   "#channel",
		IconEmoji: ":emoji:",
		Text:      "loaded 42 rows into hscic.prescribing",
		Username:  "username",
	}, sent)
}

func TestSlackNotifier_failures(t *testing.T) {
	t.Parallel()

	cases := map[string]*http.Response{
		"status code": slackReply(http.StatusInternalServerError, "oops"),
		"not ok":      slackReply(http.StatusOK, `{"ok":false,"error":"channel_not_found"}`),
		"bad json":    slackReply(http.StatusOK, `<html>`),
	}

	for name, resp := range cases {
		name, resp := name, resp
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			n := &SlackNotifier{
				Channel: "#channel",
				HTTPClient: newHTTPClient(func(*http.Request) (*http.Response, error) {
					return resp, nil
				}),
			}

			err := n.Notify(context.Background(), &Result{Operation: OperationLoad, Target: "d.t"})
			assert.Error(t, err)
		})
	}
}

func TestSlackText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		result *Result
		expect string
	}{
		{
			name:   "load",
			result: &Result{Operation: OperationLoad, Target: "hscic.practice", Rows: 3},
			expect: "loaded 3 rows into hscic.practice",
		},
		{
			name: "query",
			result: &Result{
				Operation:   OperationQuery,
				Target:      "measures.ratio",
				Annotations: &Annotations{Time: 3, GBProcessed: 2, EstCost: 0.01},
			},
			expect: "query into measures.ratio finished in 3.0s (2.00 GB, $0.01)",
		},
		{
			name:   "error",
			result: &Result{Operation: OperationQuery, Target: "measures.ratio", Error: errors.New("boom")},
			expect: "query into measures.ratio failed: boom",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.expect, slackText(c.result))
		})
	}
}

func TestClient_notify(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{err: errors.New("slack is down")}
	w := &fakeWarehouse{}
	c := newTestClient(t, w, WithNotifier(n))

	_, err := c.Load(context.Background(), &LoadRequest{
		Dataset: "d",
		Table:   "t",
		Schema:  testSchema,
		Source:  strings.NewReader("A,a,1\nB,b,2\n"),
	})
	require.NoError(t, err, "notifier failures must not fail the load")

	require.Len(t, n.results, 1)
	assert.Equal(t, OperationLoad, n.results[0].Operation)
	assert.Equal(t, "d.t", n.results[0].Target)
	assert.Equal(t, 2, n.results[0].Rows)
	assert.NoError(t, n.results[0].Error)

	_, err = c.Load(context.Background(), &LoadRequest{Dataset: "d", Table: "t"})
	require.Error(t, err)
	require.Len(t, n.results, 2)
	assert.Error(t, n.results[1].Error)
}
