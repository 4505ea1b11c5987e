package api

import (
	"context"
	"net/http"
)

// ListSchedules returns all recurring scrape triggers.
func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	schedules, err := getJSON[[]Schedule](ctx, c, "/api/schedules", nil)
	if err != nil {
		return nil, err
	}
	return *schedules, nil
}

// GetSchedule returns one schedule by ID.
func (c *Client) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	return getJSON[Schedule](ctx, c, idPath("/api/schedules/%d", id), nil)
}

// CreateSchedule registers a new recurring scrape.
func (c *Client) CreateSchedule(ctx context.Context, input ScheduleInput) (*Schedule, error) {
	return sendJSON[Schedule](ctx, c, http.MethodPost, "/api/schedules", input)
}

// UpdateSchedule modifies a schedule.
func (c *Client) UpdateSchedule(ctx context.Context, id int64, input ScheduleInput) (*Schedule, error) {
	return sendJSON[Schedule](ctx, c, http.MethodPut, idPath("/api/schedules/%d", id), input)
}

// DeleteSchedule removes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	return doDelete(ctx, c, idPath("/api/schedules/%d", id))
}

// SetScheduleEnabled toggles a schedule without touching its other fields.
func (c *Client) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) (*Schedule, error) {
	body := map[string]bool{"enabled": enabled}
	return sendJSON[Schedule](ctx, c, http.MethodPatch, idPath("/api/schedules/%d", id), body)
}
