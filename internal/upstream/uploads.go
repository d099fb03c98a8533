package upstream

import (
	"context"
	"io"
	"net/http"
)

// Upload forwards a multipart body untouched and returns the raw reply for
// strict decoding by the caller.
func (c *Client) Upload(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "uploads", contentType, body)
}
