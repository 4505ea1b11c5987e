package api

import (
	"context"
	"net/http"
)

// GetEmailConfig returns the alert mail settings.
func (c *Client) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	return getJSON[EmailConfig](ctx, c, "/api/email/config", nil)
}

// UpdateEmailConfig replaces the alert mail settings.
func (c *Client) UpdateEmailConfig(ctx context.Context, cfg EmailConfig) (*EmailConfig, error) {
	return sendJSON[EmailConfig](ctx, c, http.MethodPut, "/api/email/config", cfg)
}

// SendTestEmail asks the backend to send a test message to the configured
// recipients.
func (c *Client) SendTestEmail(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPost, "/api/email/test", nil, nil)
	return err
}
