package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudbill/cloudbill/bootstrap"
	"github.com/cloudbill/cloudbill/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting API server",
	Long: `Start the cloudbill reporting server.

The server will:
  - Load configuration from cloudbill.yaml (or --config)
  - Or load configuration from CLOUDBILL_* environment variables
  - Open the database and apply pending migrations
  - Serve usage and cost reports under /v1

Environment variables (for Docker deployments):
  CLOUDBILL_DATABASE_DSN    - Database path (default: cloudbill.db)
  CLOUDBILL_SERVER_PORT     - Server port (default: 8080)
  CLOUDBILL_REPORT_WORKERS  - Fan-out worker limit (default: 8)
  CLOUDBILL_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  cloudbill serve
  cloudbill serve --config /etc/cloudbill/config.yaml
  cloudbill serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile && !config.HasEnvConfig() {
			fmt.Println("Running with built-in defaults (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
