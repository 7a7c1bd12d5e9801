package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/client"
)

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a 3D model from a text prompt or an image",
	}
	cmd.AddCommand(newGenerateTextCmd(a), newGenerateImageCmd(a))
	return cmd
}

// generateFlags are shared by both generate subcommands.
type generateFlags struct {
	public   bool
	internal bool
	wait     bool
	animate  bool
	poll     pollFlags
}

func (g *generateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&g.public, "public", false, "allow the generated model to be public")
	cmd.Flags().BoolVar(&g.internal, "allow-internal-use", false, "allow the model to be used for service improvements")
	cmd.Flags().BoolVar(&g.wait, "wait", false, "wait until the generated model is done")
	cmd.Flags().BoolVar(&g.animate, "animate", false, "wait, then animate the generated model and wait for that too")
	g.poll.bind(cmd)
}

// finish prints the submission, or waits for it when asked to.
func (g *generateFlags) finish(cmd *cobra.Command, a *app, rt *session, sub *client.SubmitResponse) error {
	if !g.wait {
		return a.print(cmd, sub)
	}
	opts := g.poll.apply(cmd, rt.client.PollOptions())
	doc, err := rt.client.GetGeneratedModel(cmd.Context(), sub.JobID, opts)
	if err != nil {
		return err
	}
	return a.print(cmd, doc)
}

func newGenerateTextCmd(a *app) *cobra.Command {
	var (
		g        generateFlags
		noRefine bool
	)
	cmd := &cobra.Command{
		Use:   "text <prompt>",
		Short: "Generate a model from a text prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.TextTo3DRequest{
				Prompt:                        strings.Join(args, " "),
				RefinePrompt:                  client.Bool(!noRefine),
				CanBePublic:                   g.public,
				CanUseForInternalImprovements: g.internal,
			}
			return a.withRuntime(cmd, func(rt *session) error {
				if g.animate {
					opts := g.poll.apply(cmd, rt.client.PollOptions())
					doc, err := rt.client.GenerateAnimatedFromText(cmd.Context(), req, opts)
					if err != nil {
						return err
					}
					return a.print(cmd, doc)
				}
				sub, err := rt.client.GenerateFromText(cmd.Context(), req)
				if err != nil {
					return err
				}
				return g.finish(cmd, a, rt, sub)
			})
		},
	}
	cmd.Flags().BoolVar(&noRefine, "no-refine", false, "send the prompt as written")
	g.bind(cmd)
	return cmd
}

func newGenerateImageCmd(a *app) *cobra.Command {
	var (
		g    generateFlags
		name string
	)
	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Generate a model from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.ImageTo3DRequest{
				FilePath:                      args[0],
				ModelName:                     name,
				CanBePublic:                   g.public,
				CanUseForInternalImprovements: g.internal,
			}
			return a.withRuntime(cmd, func(rt *session) error {
				if g.animate {
					opts := g.poll.apply(cmd, rt.client.PollOptions())
					doc, err := rt.client.GenerateAnimatedFromImage(cmd.Context(), req, opts)
					if err != nil {
						return err
					}
					return a.print(cmd, doc)
				}
				sub, err := rt.client.GenerateFromImage(cmd.Context(), req)
				if err != nil {
					return err
				}
				return g.finish(cmd, a, rt, sub)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "model name (required)")
	_ = cmd.MarkFlagRequired("name")
	g.bind(cmd)
	return cmd
}
