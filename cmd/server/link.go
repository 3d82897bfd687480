package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"activity-notes/internal/auth"
)

var linkEmail string

var linkCmd = &cobra.Command{
	Use:   "generate-link",
	Short: "Print a single-use login link for a user",
	Long:  `Creates the user if needed and prints a login link that is valid for 24 hours and can be used once.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := bootstrap()
		defer log.Sync()

		database, err := openDB(cmd.Context(), cfg, log)
		if err != nil {
			fatal("Failed to initialize database", err)
		}
		defer database.Close()

		a := auth.New(database, cfg.JWTSecret, log)
		link, err := a.GenerateLoginLink(cmd.Context(), cfg.BaseURL, linkEmail)
		if err != nil {
			fatal("Failed to generate login link", err)
		}
		fmt.Printf("\n=== Login link for %s (single use, valid for 24 hours) ===\n%s\n\n", linkEmail, link)
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkEmail, "email", "e", "", "Email of the user to sign in")
	_ = linkCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(linkCmd)
}
