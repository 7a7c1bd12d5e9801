package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/transport"
	"github.com/BaSui01/anythingworld/types"
)

// FetchStatus performs exactly one status query for id against statusURL and
// returns the decoded document. One-element list responses are unwrapped.
func (c *Client) FetchStatus(ctx context.Context, statusURL string, id types.JobID) (types.StatusDocument, error) {
	return c.fetchStatus(ctx, statusURL, endpointStatus, id)
}

func (c *Client) fetchStatus(ctx context.Context, statusURL, endpoint string, id types.JobID) (types.StatusDocument, error) {
	if id == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "job id is required")
	}
	q := c.stagingQuery()
	q.Set(fieldKey, c.apiKey)
	q.Set("id", string(id))
	q.Set("stage", "done")

	resp, err := c.transport.Do(ctx, transport.Request{
		Method:   http.MethodGet,
		URL:      statusURL,
		Endpoint: endpoint,
		Query:    q,
	})
	if err != nil {
		return nil, err
	}
	return transport.AsDocument(transport.UnwrapSingle(resp.Body))
}

// fetcher binds the status query to one polling endpoint.
func (c *Client) fetcher(statusURL, endpoint string) poller.Fetcher {
	return poller.FetcherFunc(func(ctx context.Context, id types.JobID) (types.StatusDocument, error) {
		return c.fetchStatus(ctx, statusURL, endpoint, id)
	})
}

// GetModel fetches the current status of an animate job once, without
// waiting for any stage.
func (c *Client) GetModel(ctx context.Context, id types.JobID) (types.StatusDocument, error) {
	return c.fetchStatus(ctx, c.pollingURL, endpointStatus, id)
}

// GetGeneratedStatus is GetModel for generate jobs.
func (c *Client) GetGeneratedStatus(ctx context.Context, id types.JobID) (types.StatusDocument, error) {
	return c.fetchStatus(ctx, c.generatedURL, endpointGeneratedStatus, id)
}

// StatusURL returns the polling endpoint for jobs of kind.
func (c *Client) StatusURL(kind types.JobKind) (string, error) {
	switch kind {
	case types.JobKindAnimate:
		return c.pollingURL, nil
	case types.JobKindGenerate:
		return c.generatedURL, nil
	default:
		return "", types.Errorf(types.ErrConfiguration, "unknown job kind %q", kind)
	}
}

func (c *Client) pollerFor(kind types.JobKind) (*poller.Poller, error) {
	switch kind {
	case types.JobKindAnimate:
		return c.animate, nil
	case types.JobKindGenerate:
		return c.generate, nil
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unknown job kind %q", kind)
	}
}

// searchQuery builds the _anything lookup parameters.
func (c *Client) searchQuery(name, search string) url.Values {
	q := c.stagingQuery()
	q.Set(fieldKey, c.apiKey)
	if name != "" {
		q.Set("name", name)
	}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("fuzzy", "true")
	return q
}
