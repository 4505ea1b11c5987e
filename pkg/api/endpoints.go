package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Shared helpers for the typed endpoint wrappers. Every wrapper is a thin
// method + path + params binding over Client.Request.

func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	resp, err := c.Request(ctx, http.MethodGet, path, nil, query)
	if err != nil {
		return nil, err
	}
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sendJSON[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	resp, err := c.Request(ctx, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func doDelete(ctx context.Context, c *Client, path string) error {
	_, err := c.Request(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// query drops unset values before encoding, matching the backend's
// convention that absent filters mean "no filter".

func setStr(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int64) {
	if value != 0 {
		q.Set(key, strconv.FormatInt(value, 10))
	}
}

func setFloat(q url.Values, key string, value float64) {
	if value != 0 {
		q.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
}

func setBool(q url.Values, key string, value bool) {
	if value {
		q.Set(key, "true")
	}
}

func setTime(q url.Values, key string, value time.Time) {
	if !value.IsZero() {
		q.Set(key, value.UTC().Format(time.RFC3339))
	}
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
