package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

// PollUntilDone waits until job id of the given kind reaches a terminal stage
// for detail, polling the endpoint that matches kind. The document of the
// terminal fetch is returned unchanged. A zero opts.Interval uses the
// configured polling interval.
func (c *Client) PollUntilDone(ctx context.Context, id types.JobID, kind types.JobKind, detail types.DetailLevel, opts poller.Options) (types.StatusDocument, error) {
	terminal, err := stages.TerminalStages(kind, detail)
	if err != nil {
		return nil, err
	}
	p, err := c.pollerFor(kind)
	if err != nil {
		return nil, err
	}
	opts = c.withDefaults(opts)

	ctx = types.WithJobID(ctx, id)
	c.trackStart(ctx, id, kind, detail)
	doc, err := p.PollUntilDone(ctx, id, terminal, c.track(ctx, id, opts))
	c.trackFinish(ctx, id, doc, err)
	return doc, err
}

// IsDone performs one status fetch and reports whether job id has reached a
// terminal stage for (kind, detail). It never waits.
func (c *Client) IsDone(ctx context.Context, id types.JobID, kind types.JobKind, detail types.DetailLevel) (bool, error) {
	_, done, err := c.Check(ctx, id, kind, detail)
	return done, err
}

// Check is IsDone that also returns the fetched document.
func (c *Client) Check(ctx context.Context, id types.JobID, kind types.JobKind, detail types.DetailLevel) (types.StatusDocument, bool, error) {
	terminal, err := stages.TerminalStages(kind, detail)
	if err != nil {
		return nil, false, err
	}
	p, err := c.pollerFor(kind)
	if err != nil {
		return nil, false, err
	}
	return p.Check(ctx, id, terminal, c.defaults.MissingStage)
}

// GetAnimatedModel waits for an animate job. DetailExtraFormats also waits for
// the gltf and dae conversions.
func (c *Client) GetAnimatedModel(ctx context.Context, id types.JobID, detail types.DetailLevel, opts poller.Options) (types.StatusDocument, error) {
	return c.PollUntilDone(ctx, id, types.JobKindAnimate, detail, opts)
}

// GetGeneratedModel waits for a generate job.
func (c *Client) GetGeneratedModel(ctx context.Context, id types.JobID, opts poller.Options) (types.StatusDocument, error) {
	return c.PollUntilDone(ctx, id, types.JobKindGenerate, types.DetailDefault, opts)
}

// IsAnimationDone checks an animate job once.
func (c *Client) IsAnimationDone(ctx context.Context, id types.JobID, detail types.DetailLevel) (bool, error) {
	return c.IsDone(ctx, id, types.JobKindAnimate, detail)
}

// IsGenerationDone checks a generate job once.
func (c *Client) IsGenerationDone(ctx context.Context, id types.JobID) (bool, error) {
	return c.IsDone(ctx, id, types.JobKindGenerate, types.DetailDefault)
}

// WaitTarget is one job passed to WaitAll.
type WaitTarget struct {
	JobID  types.JobID
	Kind   types.JobKind
	Detail types.DetailLevel
}

// withDefaults fills a zero interval from config so that a bare
// poller.Options{} never polls back to back.
func (c *Client) withDefaults(opts poller.Options) poller.Options {
	if opts.Interval == 0 {
		opts.Interval = c.defaults.Interval
	}
	return opts
}

// WaitAll polls several jobs concurrently with the same options. Results are
// index-aligned with targets. An invalid target fails the whole call before
// any request is sent.
func (c *Client) WaitAll(ctx context.Context, targets []WaitTarget, opts poller.Options, gopts poller.GroupOptions) ([]poller.Result, error) {
	opts = c.withDefaults(opts)
	pts := make([]poller.Target, len(targets))
	for i, t := range targets {
		terminal, err := stages.TerminalStages(t.Kind, t.Detail)
		if err != nil {
			return nil, err
		}
		statusURL, err := c.StatusURL(t.Kind)
		if err != nil {
			return nil, err
		}
		endpoint := endpointStatus
		if t.Kind == types.JobKindGenerate {
			endpoint = endpointGeneratedStatus
		}
		c.trackStart(ctx, t.JobID, t.Kind, t.Detail)
		pts[i] = poller.Target{
			JobID:    t.JobID,
			Terminal: terminal,
			Options:  c.track(ctx, t.JobID, opts),
			Fetcher:  c.fetcher(statusURL, endpoint),
		}
	}

	results := c.animate.PollAll(ctx, pts, gopts)
	for _, r := range results {
		c.trackFinish(ctx, r.JobID, r.Document, r.Err)
	}
	return results, nil
}

// =============================================================================
// job store hooks
// =============================================================================

// trackStart makes sure a record exists for jobs polled without having been
// submitted through this client.
func (c *Client) trackStart(ctx context.Context, id types.JobID, kind types.JobKind, detail types.DetailLevel) {
	if c.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	job, err := c.store.Get(ctx, id)
	switch {
	case errors.Is(err, jobstore.ErrNotFound):
		c.storeErr("save", id, c.store.Save(ctx, &jobstore.Job{
			ID:     id,
			Kind:   kind,
			Detail: detail,
			State:  jobstore.StatePending,
		}))
	case err != nil:
		c.storeErr("get", id, err)
	case job.Detail != detail:
		job.Detail = detail
		c.storeErr("save", id, c.store.Save(ctx, job))
	}
}

// track chains a stage recorder in front of the caller's OnAttempt.
func (c *Client) track(ctx context.Context, id types.JobID, opts poller.Options) poller.Options {
	if c.store == nil {
		return opts
	}
	next := opts.OnAttempt
	ctx = context.WithoutCancel(ctx)
	opts.OnAttempt = func(attempt int, doc types.StatusDocument, err error) {
		if err == nil {
			if stage, ok := doc.Stage(); ok {
				c.storeErr("record_stage", id, c.store.RecordStage(ctx, id, stage, attempt))
			}
		}
		if next != nil {
			next(attempt, doc, err)
		}
	}
	return opts
}

// trackFinish closes the record. Cancellation and poll limits leave the job
// running: the server-side job is unaffected by the client giving up.
func (c *Client) trackFinish(ctx context.Context, id types.JobID, doc types.StatusDocument, err error) {
	if c.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	switch types.GetErrorCode(err) {
	case "":
		if err != nil {
			c.storeErr("mark_failed", id, c.store.MarkFailed(ctx, id, err))
			return
		}
		stage, _ := doc.Stage()
		c.storeErr("mark_done", id, c.store.MarkDone(ctx, id, stage))
	case types.ErrCancelled, types.ErrPollLimit, types.ErrConfiguration:
		c.logger.Debug("poll ended without a result",
			zap.String("job_id", string(id)),
			zap.Error(err),
		)
	default:
		c.storeErr("mark_failed", id, c.store.MarkFailed(ctx, id, err))
	}
}
