package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/koyak/kombat_backend/internal/database"
)

var migrateDataDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Open the match database and bring its schema up to date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}

		db, err := database.New(migrateDataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer db.Close()

		fmt.Println("Database migrations completed successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDataDir, "data-dir", "data", "Directory for the match database")
	rootCmd.AddCommand(migrateCmd)
}
