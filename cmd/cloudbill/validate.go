package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudbill/cloudbill/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		fmt.Println("Configuration valid")
		fmt.Printf("  Listen:   %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("  Database: %s\n", cfg.Database.DSN)
		fmt.Printf("  Workers:  %d\n", cfg.Report.Workers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
