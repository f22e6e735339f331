package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var f sourceFlags
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report duplicates and near matches without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.open(ctx, cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderWarnings(s.Warnings()))
			fmt.Fprint(out, renderInspection(s.Inspect()))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}
