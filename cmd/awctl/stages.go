package main

import (
	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

// stageRow is one printed catalog entry.
type stageRow struct {
	Kind   types.JobKind     `json:"kind" yaml:"kind"`
	Detail types.DetailLevel `json:"detail" yaml:"detail"`
	Stages []string          `json:"stages" yaml:"stages"`
}

func newStagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Print the terminal stages for every job kind and detail level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := stages.Entries()
			rows := make([]stageRow, len(entries))
			for i, e := range entries {
				rows[i] = stageRow{Kind: e.Kind, Detail: e.Detail, Stages: e.Stages.Names()}
			}
			return a.print(cmd, rows)
		},
	}
}
