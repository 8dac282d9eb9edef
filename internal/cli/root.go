// Package cli wires the sleuth commands together.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Plan-approve-execute repository investigator",
	Long: `Sleuth investigates ingested code repositories in two phases: a
reasoning model drafts an investigation plan, and the plan only executes
under an HMAC approval signature over its exact steps. Every claim in
the final analysis must cite evidence that verification can check
against the repository snapshot.

Typical flow:
  sleuth ingest ./some-repo        ingest a repository, print its id
  sleuth serve                     start the HTTP API and background runner
  sleuth sign <plan-id>            produce the approval signature for a plan`,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")
}
