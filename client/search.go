package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/anythingworld/transport"
	"github.com/BaSui01/anythingworld/types"
)

// FindByName looks up models by name with fuzzy matching. The result is the
// decoded response: usually a list of model objects.
func (c *Client) FindByName(ctx context.Context, name string) (any, error) {
	if strings.TrimSpace(name) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "model name is required")
	}
	return c.anything(ctx, name, "")
}

// Find runs a free-text search with fuzzy matching.
func (c *Client) Find(ctx context.Context, query string) (any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "search query is required")
	}
	return c.anything(ctx, "", query)
}

func (c *Client) anything(ctx context.Context, name, search string) (any, error) {
	resp, err := c.transport.Do(ctx, transport.Request{
		Method:   http.MethodGet,
		URL:      c.endpointURL(endpointAnything),
		Endpoint: endpointAnything,
		Query:    c.searchQuery(name, search),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
