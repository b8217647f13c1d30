// Package commands holds the receipts-reconciler CLI.
package commands

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "receipts-reconciler",
		Short: "Extract receipts and reconcile them against bank transactions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (env vars override it)")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newWatchCommand(flags),
		newExtractCommand(flags),
		newImportCommand(flags),
		newReconcileCommand(flags),
		newCategorizeCommand(flags),
		newExportCommand(flags),
		newSeedCommand(flags),
	)
	return rootCmd
}

// batchApp loads config with JSON logs on stderr so stdout stays parseable.
func batchApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	return newApp(flags.configPath, cmd.ErrOrStderr(), true)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
