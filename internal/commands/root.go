package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the ridekit command tree.
func NewRootCommand(env *Env, version string) *cobra.Command {
	global := &globalOptions{}
	if env.Version == "" {
		env.Version = version
	}

	root := &cobra.Command{
		Use:   "ridekit",
		Short: "Authenticated client for the ride-hailing API",
		Long: `Performs authenticated calls against the ride-hailing backend with
bounded retries, and manages the stored access token.

Configuration is read from ridekit.yaml and RIDEKIT_* environment variables.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&global.ConfigFile, "config", "c", "", "Configuration file (default ridekit.yaml)")
	root.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "Override log.level")

	root.SetOut(env.Out)
	root.SetErr(env.Err)

	root.AddCommand(
		NewCallCommand(env, global),
		NewTokenCommand(env, global),
		NewValidateCommand(env),
		NewLoginCommand(env, global),
		NewVersionCommand(env, version),
	)
	return root
}

// NewVersionCommand creates the version command
func NewVersionCommand(env *Env, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(env.Out, "ridekit version %s\n", version)
			fmt.Fprintf(env.Out, "Built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
