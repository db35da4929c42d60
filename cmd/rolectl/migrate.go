package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rolecultura/role/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply embedded schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(rt.DB.DB); err != nil {
			return err
		}
		fmt.Println("schema up to date")
		return nil
	},
}
