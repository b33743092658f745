package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"hradmin/internal/platform/config"
	"hradmin/internal/platform/db"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("seed", false, "Also seed the default leave catalog and admin user")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetBool("seed")

	ctx := cmd.Context()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied", "dir", cfg.MigrationsDir)

	if seed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		slog.Info("seed applied")
	}
	return nil
}
