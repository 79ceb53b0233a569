package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RichardoC/padchat/internal/db"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored conversation, project and selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		db.NewGateway(database, logger).ClearAll(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared chat history.")
		return nil
	},
}
