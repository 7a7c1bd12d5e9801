// Package anythingworld provides a top-level convenience entry point for
// talking to the Anything World API with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/anythingworld"
//
//	c, err := anythingworld.New()                          // AW_* environment variables
//	c, err := anythingworld.NewFromFile("anythingworld.yaml")
//
//	sub, err := c.Animate(ctx, anythingworld.AnimateRequest{FilesDir: "./fox", ModelName: "fox"})
//	doc, err := c.GetAnimatedModel(ctx, sub.JobID, anythingworld.DetailDefault, c.PollOptions())
//
// This is a thin wrapper around [config.Loader] and [client.New]. Use the
// client package directly for custom transports, stores or metrics.
package anythingworld

import (
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/client"
	"github.com/BaSui01/anythingworld/config"
	"github.com/BaSui01/anythingworld/types"
)

// Client is the Anything World API client.
type Client = client.Client

// Request types re-exported so callers never need to import client/.
type (
	AnimateRequest   = client.AnimateRequest
	TextTo3DRequest  = client.TextTo3DRequest
	ImageTo3DRequest = client.ImageTo3DRequest
	SubmitResponse   = client.SubmitResponse
)

// Detail levels for animate jobs.
const (
	DetailDefault      = types.DetailDefault
	DetailExtraFormats = types.DetailExtraFormats
)

// New creates a client configured from defaults and AW_* environment
// variables. Only AW_API_KEY is required.
func New(opts ...client.Option) (*Client, error) {
	return NewFromFile("", opts...)
}

// NewFromFile is New with a YAML config file layered under the environment.
// A missing file keeps the defaults.
func NewFromFile(path string, opts ...client.Option) (*Client, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "load configuration").WithCause(err)
	}
	return client.New(cfg, zap.NewNop(), opts...)
}
