package poller

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

// Target is one polling sequence run by PollAll.
type Target struct {
	JobID    types.JobID
	Terminal stages.StageSet
	Options  Options
	// Fetcher overrides the Poller's fetcher for this target, e.g. when
	// animate and generate jobs are polled on different endpoints.
	Fetcher Fetcher
}

// Result is the outcome of one Target. Results are index-aligned with targets.
type Result struct {
	JobID    types.JobID
	Document types.StatusDocument
	Err      error
}

// GroupOptions configures PollAll.
type GroupOptions struct {
	// Concurrency caps the number of sequences in flight. Zero is unlimited.
	Concurrency int
	// FailFast cancels the remaining sequences after the first failure. They
	// then report CANCELLED.
	FailFast bool
}

// PollAll runs independent polling sequences concurrently and waits for all
// of them. Sequences share nothing but the fetcher.
func (p *Poller) PollAll(ctx context.Context, targets []Target, gopts GroupOptions) []Result {
	results := make([]Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if gopts.Concurrency > 0 {
		g.SetLimit(gopts.Concurrency)
	}

	for i, t := range targets {
		g.Go(func() error {
			fetcher := t.Fetcher
			if fetcher == nil {
				fetcher = p.fetcher
			}
			doc, err := p.poll(gctx, fetcher, t.JobID, t.Terminal, t.Options)
			results[i] = Result{JobID: t.JobID, Document: doc, Err: err}
			if gopts.FailFast {
				return err
			}
			return nil // keep the other sequences running
		})
	}
	_ = g.Wait()
	return results
}

// FirstError returns the first non-nil error in results, in target order.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
