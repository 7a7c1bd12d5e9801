package main

import (
	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/types"
)

func newJobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs recorded in the configured job store",
	}
	cmd.AddCommand(newJobsListCmd(a), newJobsGetCmd(a), newJobsDeleteCmd(a))
	return cmd
}

func requireStore(rt *session) (jobstore.Store, error) {
	if rt.store == nil {
		return nil, types.NewError(types.ErrConfiguration,
			"no job store configured (set store.backend to memory, redis or sql)")
	}
	return rt.store, nil
}

func newJobsListCmd(a *app) *cobra.Command {
	var (
		state string
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded jobs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := jobstore.Filter{State: jobstore.State(state), Limit: limit}
			if kind != "" {
				k, err := parseKind(kind)
				if err != nil {
					return err
				}
				filter.Kind = k
			}
			if limit < 0 {
				return usagef("--limit must not be negative")
			}
			return a.withRuntime(cmd, func(rt *session) error {
				store, err := requireStore(rt)
				if err != nil {
					return err
				}
				jobs, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jobs == nil {
					jobs = []*jobstore.Job{}
				}
				return a.print(cmd, jobs)
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only jobs in this state: pending, running, done or failed")
	cmd.Flags().StringVar(&kind, "kind", "", "only jobs of this kind: animate or generate")
	cmd.Flags().IntVar(&limit, "limit", 0, "return at most this many jobs (0 = all)")
	return cmd
}

func newJobsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one recorded job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *session) error {
				store, err := requireStore(rt)
				if err != nil {
					return err
				}
				job, err := store.Get(cmd.Context(), types.JobID(args[0]))
				if err != nil {
					return err
				}
				return a.print(cmd, job)
			})
		},
	}
}

func newJobsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Forget a recorded job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *session) error {
				store, err := requireStore(rt)
				if err != nil {
					return err
				}
				return store.Delete(cmd.Context(), types.JobID(args[0]))
			})
		},
	}
}
