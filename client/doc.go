// Package client is the Anything World API client: it submits animate and
// generate jobs, fetches their status and waits for them with the poller.
//
// A Client is configured from config.Config and is safe for concurrent use.
// Every method that talks to the service takes a context; cancelling it ends
// an in-flight poll with a CANCELLED error.
//
// Typical use:
//
//	c, err := client.New(cfg, logger)
//	sub, err := c.Animate(ctx, client.AnimateRequest{FilesDir: "./fox", ModelName: "fox"})
//	doc, err := c.GetAnimatedModel(ctx, sub.JobID, types.DetailDefault, c.PollOptions())
package client
