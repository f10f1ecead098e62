// Package commands implements the CLI commands for knot.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/knot/internal/app"
	"go.trai.ch/knot/internal/build"
	"go.trai.ch/knot/internal/engine/resolver"
)

// CLI represents the command line interface for knot.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Resolve(ctx context.Context, opts app.Options, out string, w io.Writer) error
	Lock(ctx context.Context, opts app.Options) (string, error)
	Graph(ctx context.Context, opts app.Options) (*app.GraphView, error)
	Verify(ctx context.Context, opts app.Options) (*resolver.Report, error)
	Clean(ctx context.Context, opts app.Options) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "knot",
		Short:         "Resolve Move package dependencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("env", "e", "", "Environment to resolve for (default from knot.yaml, else testnet)")
	flags.Bool("dev", false, "Include the root package's dev-dependencies")
	flags.Bool("strict-addresses", false, "Fail on conflicting named address assignments")
	flags.Bool("strict-fetch", false, "Fail when a dependency cannot be fetched")
	flags.Bool("json-logs", false, "Write logs as JSON lines")
	flags.Bool("trace", false, "Log the duration of every resolution phase")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newLockCmd())
	rootCmd.AddCommand(c.newGraphCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options reads the shared flags and the optional package directory argument.
func options(cmd *cobra.Command, args []string) app.Options {
	env, _ := cmd.Flags().GetString("env")
	dev, _ := cmd.Flags().GetBool("dev")
	strictAddresses, _ := cmd.Flags().GetBool("strict-addresses")
	strictFetch, _ := cmd.Flags().GetBool("strict-fetch")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	trace, _ := cmd.Flags().GetBool("trace")

	opts := app.Options{
		Environment:     env,
		Dev:             dev,
		StrictAddresses: strictAddresses,
		StrictFetch:     strictFetch,
		JSONLogs:        jsonLogs,
		Trace:           trace,
	}
	if len(args) > 0 {
		opts.Dir = args[0]
	}
	return opts
}
