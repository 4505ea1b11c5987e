package api

import (
	"context"
	"net/url"
)

// StatsOverview returns the dashboard header counters.
func (c *Client) StatsOverview(ctx context.Context) (*StatsOverview, error) {
	return getJSON[StatsOverview](ctx, c, "/api/stats/overview", nil)
}

// StatsTrends returns the daily trend series for the last `days` days
// (backend default when zero), optionally filtered by city.
func (c *Client) StatsTrends(ctx context.Context, days int, city string) ([]TrendPoint, error) {
	q := url.Values{}
	setInt(q, "days", int64(days))
	setStr(q, "city", city)
	points, err := getJSON[[]TrendPoint](ctx, c, "/api/stats/trends", q)
	if err != nil {
		return nil, err
	}
	return *points, nil
}

// StatsBySite returns per-site counters.
func (c *Client) StatsBySite(ctx context.Context) ([]SiteStats, error) {
	stats, err := getJSON[[]SiteStats](ctx, c, "/api/stats/sites", nil)
	if err != nil {
		return nil, err
	}
	return *stats, nil
}

// RecentActivity returns the latest dashboard activity feed entries.
func (c *Client) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	q := url.Values{}
	setInt(q, "limit", int64(limit))
	entries, err := getJSON[[]ActivityEntry](ctx, c, "/api/stats/activity", q)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}
