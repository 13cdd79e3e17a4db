package main

import (
	"github.com/spf13/cobra"

	"chefslot/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		// Open applies the schema.
		database, err := db.Open(cfg.Database.Path, &logger)
		if err != nil {
			return err
		}
		defer database.Close()

		logger.Info().Str("path", cfg.Database.Path).Msg("Schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
