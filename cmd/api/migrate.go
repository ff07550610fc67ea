package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	for _, c := range []struct {
		cmd   persistence.MigrationCommand
		short string
	}{
		{persistence.MigrateUp, "Apply all pending migrations"},
		{persistence.MigrateDown, "Roll back the most recent migration"},
		{persistence.MigrateStatus, "Print the status of every migration"},
	} {
		migrateCmd.AddCommand(newMigrateSubCmd(c.cmd, c.short))
	}
	return migrateCmd
}

func newMigrateSubCmd(command persistence.MigrationCommand, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			if err := persistence.Migrate(cmd.Context(), pg.PoolHandle(), command, logger); err != nil {
				return fmt.Errorf("migrate %s failed: %w", command, err)
			}
			return nil
		},
	}
}
