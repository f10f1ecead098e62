package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [dir]",
		Short: "Resolve dependencies and print the compiler input",
		Long: `Resolve the package in dir (default: the working directory) and emit the
compiler input JSON: the root sources plus every dependency with its address mapping.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return c.app.Resolve(cmd.Context(), options(cmd, args), out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write the compiler input to a file instead of stdout")
	return cmd
}
