package api

import (
	"context"
	"mime"
	"net/http"
	"net/url"
)

// queryValues encodes a PropertyQuery, dropping unset filters.
func (q PropertyQuery) queryValues() url.Values {
	v := url.Values{}
	setInt(v, "site_id", q.SiteID)
	setStr(v, "city", q.City)
	setStr(v, "zip_code", q.ZipCode)
	setStr(v, "property_type", q.Type)
	setFloat(v, "min_price", q.MinPrice)
	setFloat(v, "max_price", q.MaxPrice)
	setFloat(v, "min_rooms", q.MinRooms)
	setStr(v, "search", q.Search)
	setStr(v, "sort_by", q.SortBy)
	setBool(v, "sort_desc", q.SortDesc)
	setInt(v, "page", int64(q.Page))
	setInt(v, "page_size", int64(q.PageSize))
	return v
}

// QueryProperties returns one page of listings matching the query.
func (c *Client) QueryProperties(ctx context.Context, query PropertyQuery) (*PropertyPage, error) {
	return getJSON[PropertyPage](ctx, c, "/api/data/properties", query.queryValues())
}

// GetProperty returns one listing by ID.
func (c *Client) GetProperty(ctx context.Context, id int64) (*Property, error) {
	return getJSON[Property](ctx, c, idPath("/api/data/properties/%d", id), nil)
}

// DeleteProperty removes one listing from the dataset.
func (c *Client) DeleteProperty(ctx context.Context, id int64) error {
	return doDelete(ctx, c, idPath("/api/data/properties/%d", id))
}

// ExportProperties downloads the matching listings in the given format
// ("csv" or "json"). The payload is returned raw.
func (c *Client) ExportProperties(ctx context.Context, query PropertyQuery, format string) (*Export, error) {
	v := query.queryValues()
	setStr(v, "format", format)

	resp, err := c.Request(ctx, http.MethodGet, "/api/data/export", nil, v)
	if err != nil {
		return nil, err
	}

	export := &Export{
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.IsJSON {
		export.Data = []byte(resp.Raw)
	} else {
		export.Data = resp.Body
	}

	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			export.Filename = params["filename"]
		}
	}

	return export, nil
}
