package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [dir]",
		Short: "Print the compile order with build and output addresses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes, _ := cmd.Flags().GetBool("outcomes")
			view, err := c.app.Graph(cmd.Context(), options(cmd, args))
			if err != nil {
				return err
			}
			renderGraph(cmd.OutOrStdout(), view, outcomes)
			return nil
		},
	}
	cmd.Flags().Bool("outcomes", false, "Also print what happened to every declared dependency")
	return cmd
}
