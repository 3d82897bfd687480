package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := bootstrap()
		defer log.Sync()

		database, err := openDB(cmd.Context(), cfg, log)
		if err != nil {
			fatal("Failed to initialize database", err)
		}
		defer database.Close()

		fmt.Println("Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
