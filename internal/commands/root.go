package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"card-rewards-api/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "cardrank",
		Short:   "Pick the best credit card for a purchase",
		Version: fmt.Sprintf("%s (commit: %s)", buildinfo.Version, buildinfo.Commit),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(newRecommendCommand(&verbose))
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
