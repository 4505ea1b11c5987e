package api

import (
	"context"
	"net/http"
)

// ListSites returns all configured listing sources.
func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	sites, err := getJSON[[]Site](ctx, c, "/api/sites", nil)
	if err != nil {
		return nil, err
	}
	return *sites, nil
}

// GetSite returns one site by ID.
func (c *Client) GetSite(ctx context.Context, id int64) (*Site, error) {
	return getJSON[Site](ctx, c, idPath("/api/sites/%d", id), nil)
}

// CreateSite registers a new listing source.
func (c *Client) CreateSite(ctx context.Context, input SiteInput) (*Site, error) {
	return sendJSON[Site](ctx, c, http.MethodPost, "/api/sites", input)
}

// UpdateSite modifies an existing site.
func (c *Client) UpdateSite(ctx context.Context, id int64, input SiteInput) (*Site, error) {
	return sendJSON[Site](ctx, c, http.MethodPut, idPath("/api/sites/%d", id), input)
}

// DeleteSite removes a site and its scraped properties.
func (c *Client) DeleteSite(ctx context.Context, id int64) error {
	return doDelete(ctx, c, idPath("/api/sites/%d", id))
}

// TestSite runs a dry-run fetch against the site's listing page without
// persisting anything.
func (c *Client) TestSite(ctx context.Context, id int64) (*SiteTestResult, error) {
	return sendJSON[SiteTestResult](ctx, c, http.MethodPost, idPath("/api/sites/%d/test", id), nil)
}
