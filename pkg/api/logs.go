package api

import (
	"context"
	"net/url"
)

// QueryLogs returns backend log lines matching the query, newest first.
func (c *Client) QueryLogs(ctx context.Context, query LogQuery) ([]LogEntry, error) {
	q := url.Values{}
	setStr(q, "level", query.Level)
	setTime(q, "since", query.Since)
	setInt(q, "limit", int64(query.Limit))

	entries, err := getJSON[[]LogEntry](ctx, c, "/api/logs", q)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}
