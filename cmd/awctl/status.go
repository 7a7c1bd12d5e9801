package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/client"
	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/types"
)

// statusResult is what `status` prints.
type statusResult struct {
	JobID    types.JobID          `json:"job_id" yaml:"job_id"`
	Done     bool                 `json:"done" yaml:"done"`
	Document types.StatusDocument `json:"document" yaml:"document"`
}

// waitResult is one line of what `wait` prints.
type waitResult struct {
	JobID    types.JobID          `json:"job_id" yaml:"job_id"`
	Document types.StatusDocument `json:"document,omitempty" yaml:"document,omitempty"`
	Error    string               `json:"error,omitempty" yaml:"error,omitempty"`
}

func parseKind(kind string) (types.JobKind, error) {
	k, err := types.ParseJobKind(kind)
	if err != nil {
		return "", usagef("--kind: %v", err)
	}
	return k, nil
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		kind         string
		extraFormats bool
	)
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Fetch the current status of a job once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			id := types.JobID(args[0])
			return a.withRuntime(cmd, func(rt *session) error {
				doc, done, err := rt.client.Check(cmd.Context(), id, k, types.DetailFor(extraFormats))
				if err != nil {
					return err
				}
				return a.print(cmd, statusResult{JobID: id, Done: done, Document: doc})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(types.JobKindAnimate), "job kind: animate or generate")
	cmd.Flags().BoolVar(&extraFormats, "extra-formats", false, "for animate jobs, count done only once gltf and dae exist")
	return cmd
}

func newWaitCmd(a *app) *cobra.Command {
	var (
		kind  string
		poll  pollFlags
		group poller.GroupOptions
	)
	cmd := &cobra.Command{
		Use:   "wait <job-id>...",
		Short: "Poll one or more jobs until they are done",
		Long: `Poll every given job concurrently until each reaches a terminal stage,
fails, or runs out of attempts. Results are printed in argument order.
The command fails if any job failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			if group.Concurrency < 0 {
				return usagef("--concurrency must not be negative")
			}
			targets := make([]client.WaitTarget, len(args))
			for i, arg := range args {
				targets[i] = client.WaitTarget{JobID: types.JobID(arg), Kind: k, Detail: poll.detail()}
			}

			return a.withRuntime(cmd, func(rt *session) error {
				opts := poll.apply(cmd, rt.client.PollOptions())
				results, err := rt.client.WaitAll(cmd.Context(), targets, opts, group)
				if err != nil {
					return err
				}
				out := make([]waitResult, len(results))
				for i, r := range results {
					out[i] = waitResult{JobID: r.JobID, Document: r.Document}
					if r.Err != nil {
						out[i].Error = r.Err.Error()
					}
				}
				if err := a.print(cmd, out); err != nil {
					return err
				}
				if err := poller.FirstError(results); err != nil {
					return fmt.Errorf("not every job finished: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(types.JobKindAnimate), "job kind: animate or generate")
	cmd.Flags().IntVar(&group.Concurrency, "concurrency", 0, "poll at most this many jobs at once (0 = all)")
	cmd.Flags().BoolVar(&group.FailFast, "fail-fast", false, "stop polling the others once one job fails")
	poll.bind(cmd)
	return cmd
}
