package api

import "context"

// Health returns the backend health report. Dashboards poll this to show
// whether the scraper is reachable and what it is running.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	return getJSON[HealthStatus](ctx, c, "/api/health", nil)
}
