package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [dir]",
		Short: "Check Move.lock against the current manifests",
		Long: `Fetch the manifest of every pinned package and compare it with the digest
recorded in Move.lock. Exits non-zero when the lockfile is stale.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.Verify(cmd.Context(), options(cmd, args))
			if report != nil {
				renderReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}
