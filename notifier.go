package bqtools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Notifier notifies results for each load and query.
type Notifier interface {
	Notify(context.Context, *Result) error
}

// Operation is the kind of work a Result reports.
type Operation string

// Operations reported to notifiers.
const (
	OperationLoad  Operation = "load"
	OperationQuery Operation = "query"
)

// Result is a result of one load or query.
type Result struct {
	Operation Operation
	// Target is the destination table as dataset.table.
	Target string

	// Rows is set for loads.
	Rows int
	// Annotations is set for successful queries.
	Annotations *Annotations

	Error error
}

func loadResult(dataset, table string, res *LoadResult, err error) *Result {
	r := &Result{Operation: OperationLoad, Target: dataset + "." + table, Error: err}
	if res != nil {
		r.Rows = res.Rows
	}
	return r
}

func queryResult(dataset, table string, res *QueryResult, err error) *Result {
	r := &Result{Operation: OperationQuery, Target: dataset + "." + table, Error: err}
	if res != nil {
		a := res.Annotations
		r.Annotations = &a
	}
	return r
}

func (c *Client) notify(ctx context.Context, r *Result) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, r); err != nil {
		log.Ctx(ctx).Warn().Msgf("failed to notify %s result: %v", r.Operation, err)
	}
}

// SlackNotifier is a notifier for Slack.
type SlackNotifier struct {
	Channel   string
	IconEmoji string
	Username  string
	Token     string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type slackMessage struct {
	Channel   string `json:"channel"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Notify notifies results to Slack channel.
func (n *SlackNotifier) Notify(ctx context.Context, r *Result) error {
	l := log.Ctx(ctx)

	m := &slackMessage{
		Channel:   n.Channel,
		IconEmoji: n.IconEmoji,
		Text:      slackText(r),
		Username:  n.Username,
	}
	l.Debug().Msgf("m = %+v", m)

	if err := n.postMessage(ctx, m); err != nil {
		return xerrors.Errorf("slack postMessage failed: %w", err)
	}

	return nil
}

func slackText(r *Result) string {
	if r.Error != nil {
		return fmt.Sprintf("%s into %s failed: %s", r.Operation, r.Target, r.Error)
	}

	switch {
	case r.Operation == OperationQuery && r.Annotations != nil:
		return fmt.Sprintf("query into %s finished in %.1fs (%.2f GB, $%.2f)",
			r.Target, r.Annotations.Time, r.Annotations.GBProcessed, r.Annotations.EstCost)
	case r.Operation == OperationLoad:
		return fmt.Sprintf("loaded %d rows into %s", r.Rows, r.Target)
	default:
		return fmt.Sprintf("%s into %s finished", r.Operation, r.Target)
	}
}

func (n *SlackNotifier) postMessage(ctx context.Context, m *slackMessage) error {
	l := log.Ctx(ctx)

	reqJSON, err := json.Marshal(m)
	if err != nil {
		return xerrors.Errorf("failed to marshal json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://slack.com/api/chat.postMessage", bytes.NewReader(reqJSON))
	if err != nil {
		return xerrors.Errorf("failed to build http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	l.Debug().Msgf("req = %+v", req)
	req.Header.Set("Authorization", "Bearer "+n.Token)

	c := n.HTTPClient
	if c == nil {
		c = http.DefaultClient
	}

	resp, err := c.Do(req)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("failed to read response body: %w", err)
	}

	l.Debug().Msgf("body = %s", body)

	if resp.StatusCode >= 400 {
		return xerrors.Errorf(
			"slack request failed with status code %d (%s)", resp.StatusCode, body)
	}

	var sres slackResponse
	if err := json.Unmarshal(body, &sres); err != nil {
		return xerrors.Errorf("failed to unmarshal response body: %w", err)
	}

	if !sres.OK {
		return xerrors.Errorf("failed to send message: %s", sres.Error)
	}

	return nil
}
