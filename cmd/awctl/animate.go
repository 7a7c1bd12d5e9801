package main

import (
	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/client"
)

func newAnimateCmd(a *app) *cobra.Command {
	var (
		req          client.AnimateRequest
		noAutoRotate bool
		asymmetric   bool
		wait         bool
		poll         pollFlags
	)
	cmd := &cobra.Command{
		Use:   "animate <dir|file>",
		Short: "Upload a model and start an animation job",
		Long: `Upload every file in a directory (mesh plus textures), or a single file,
and start an animation job. With --wait the command polls until the
animated model is ready and prints the final status document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FilesDir = args[0]
			req.AutoRotate = client.Bool(!noAutoRotate)
			req.Symmetric = client.Bool(!asymmetric)

			return a.withRuntime(cmd, func(rt *session) error {
				sub, err := rt.client.Animate(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !wait {
					return a.print(cmd, sub)
				}
				opts := poll.apply(cmd, rt.client.PollOptions())
				doc, err := rt.client.GetAnimatedModel(cmd.Context(), sub.JobID, poll.detail(), opts)
				if err != nil {
					return err
				}
				return a.print(cmd, doc)
			})
		},
	}
	cmd.Flags().StringVar(&req.ModelName, "name", "", "model name (required)")
	cmd.Flags().StringVar(&req.ModelType, "type", "", "model type; omitted lets the service classify the model")
	cmd.Flags().BoolVar(&noAutoRotate, "no-auto-rotate", false, "keep the uploaded orientation")
	cmd.Flags().BoolVar(&asymmetric, "asymmetric", false, "the model is not symmetric")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the animation is done")
	poll.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
