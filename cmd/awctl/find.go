package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newFindCmd(a *app) *cobra.Command {
	var byName bool
	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Search the Anything World library of ready-made models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.withRuntime(cmd, func(rt *session) error {
				var (
					found any
					err   error
				)
				if byName {
					found, err = rt.client.FindByName(cmd.Context(), query)
				} else {
					found, err = rt.client.Find(cmd.Context(), query)
				}
				if err != nil {
					return err
				}
				return a.print(cmd, found)
			})
		},
	}
	cmd.Flags().BoolVar(&byName, "by-name", false, "match model names instead of free-text search")
	return cmd
}
