package api

import (
	"context"
	"net/http"
	"net/url"
)

// StartScrape kicks off a scraping run. An empty request scrapes all
// enabled sites.
func (c *Client) StartScrape(ctx context.Context, req ScrapeRequest) (*ScrapeJob, error) {
	return sendJSON[ScrapeJob](ctx, c, http.MethodPost, "/api/scrape/start", req)
}

// StopScrape aborts the currently running scrape, if any.
func (c *Client) StopScrape(ctx context.Context) (*ScrapeJob, error) {
	return sendJSON[ScrapeJob](ctx, c, http.MethodPost, "/api/scrape/stop", nil)
}

// ScrapeStatus returns the current (or most recent) scrape job. This is the
// endpoint the dashboard polls while a run is active.
func (c *Client) ScrapeStatus(ctx context.Context) (*ScrapeJob, error) {
	return getJSON[ScrapeJob](ctx, c, "/api/scrape/status", nil)
}

// ScrapeJob returns one historical job by ID.
func (c *Client) ScrapeJob(ctx context.Context, jobID string) (*ScrapeJob, error) {
	return getJSON[ScrapeJob](ctx, c, "/api/scrape/jobs/"+url.PathEscape(jobID), nil)
}

// ScrapeHistory lists past scrape jobs, newest first.
func (c *Client) ScrapeHistory(ctx context.Context, limit int) ([]ScrapeJob, error) {
	q := url.Values{}
	setInt(q, "limit", int64(limit))
	jobs, err := getJSON[[]ScrapeJob](ctx, c, "/api/scrape/history", q)
	if err != nil {
		return nil, err
	}
	return *jobs, nil
}
