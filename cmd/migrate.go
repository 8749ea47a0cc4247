package cmd

import (
	"fmt"

	"service-marketplace/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.InitDB(config.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(cmd.Context(), db, logger)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		logger.Info("Database schema is up to date")
		return nil
	}
	logger.Info("Migrations applied", zap.Strings("versions", applied))
	return nil
}
