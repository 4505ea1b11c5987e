package api

import (
	"context"
	"net/http"
)

// ListSavedSearches returns all stored property filters.
func (c *Client) ListSavedSearches(ctx context.Context) ([]SavedSearch, error) {
	searches, err := getJSON[[]SavedSearch](ctx, c, "/api/searches", nil)
	if err != nil {
		return nil, err
	}
	return *searches, nil
}

// GetSavedSearch returns one saved search by ID.
func (c *Client) GetSavedSearch(ctx context.Context, id int64) (*SavedSearch, error) {
	return getJSON[SavedSearch](ctx, c, idPath("/api/searches/%d", id), nil)
}

// CreateSavedSearch stores a new property filter.
func (c *Client) CreateSavedSearch(ctx context.Context, input SavedSearchInput) (*SavedSearch, error) {
	return sendJSON[SavedSearch](ctx, c, http.MethodPost, "/api/searches", input)
}

// UpdateSavedSearch modifies a stored filter.
func (c *Client) UpdateSavedSearch(ctx context.Context, id int64, input SavedSearchInput) (*SavedSearch, error) {
	return sendJSON[SavedSearch](ctx, c, http.MethodPut, idPath("/api/searches/%d", id), input)
}

// DeleteSavedSearch removes a stored filter.
func (c *Client) DeleteSavedSearch(ctx context.Context, id int64) error {
	return doDelete(ctx, c, idPath("/api/searches/%d", id))
}

// RunSavedSearch executes a stored filter and returns the first page of
// matching listings.
func (c *Client) RunSavedSearch(ctx context.Context, id int64) (*PropertyPage, error) {
	return sendJSON[PropertyPage](ctx, c, http.MethodPost, idPath("/api/searches/%d/run", id), nil)
}
