package backend

import (
	"context"
	"net/http"
	"time"
)

// Health probes the gateway health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.doJSON(ctx2, http.MethodGet, "/health", nil, nil)
}
