package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cloudbill",
	Short: "Usage metering and cost reporting for cloud tenants",
	Long: `Cloudbill aggregates server state intervals into per-flavor usage
and prices that usage with time-varying per-class rates.

Quick start:
  cloudbill serve     # Start the reporting API server

Management:
  cloudbill report    # Compute a usage or cost report
  cloudbill prices    # Manage flavor prices
  cloudbill validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "cloudbill.yaml", "config file path")
}
