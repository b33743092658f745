package cli

import (
	"github.com/spf13/cobra"

	"hradmin/internal/platform/config"
)

var logLevelOverride string

// NewRootCmd builds the hradmin command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hradmin",
		Short:        "HR administration backend",
		Long:         `hradmin serves the HR administration API and runs year-end leave operations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogger(config.Load().LogLevel, logLevelOverride, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewLapseCmd(),
	)

	return cmd
}
