package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cloudbill/cloudbill/adapters/idgen"
	"github.com/cloudbill/cloudbill/adapters/sqlite"
	"github.com/cloudbill/cloudbill/app"
	"github.com/cloudbill/cloudbill/config"
	"github.com/cloudbill/cloudbill/domain/scope"
	"github.com/cloudbill/cloudbill/domain/usage"
)

var (
	reportServer  string
	reportUser    string
	reportProject string
	reportAll     bool
	reportBegin   string
	reportEnd     string
	reportCosts   bool
	reportFlat    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute a usage or cost report",
	Long: `Compute a usage or cost report directly against the database.

Exactly one scope must be selected. The window defaults to the start of
the current year through now.

Examples:
  cloudbill report --user alice
  cloudbill report --project p1 --costs
  cloudbill report --all --begin 2026-01-01T00:00:00Z --end 2026-02-01T00:00:00Z`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportServer, "server", "", "report a single server instance")
	reportCmd.Flags().StringVar(&reportUser, "user", "", "report a user and their servers")
	reportCmd.Flags().StringVar(&reportProject, "project", "", "report a project and its users")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "report every project")
	reportCmd.Flags().StringVar(&reportBegin, "begin", "", "window begin (RFC3339, default: start of year)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "window end (RFC3339, default: now)")
	reportCmd.Flags().BoolVar(&reportCosts, "costs", false, "price the usage instead of reporting seconds")
	reportCmd.Flags().BoolVar(&reportFlat, "flat", false, "print only the per-flavor totals")
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := reportScope()
	if err != nil {
		return err
	}
	w, err := reportWindow()
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ids := idgen.UUID{}
	reporter := app.NewReporter(app.ReporterDeps{
		Usage:     sqlite.NewUsageStore(db, ids),
		Prices:    sqlite.NewPriceStore(db, ids),
		Directory: sqlite.NewDirectoryStore(db),
		Logger:    zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
		Workers:   cfg.Report.Workers,
	})

	ctx := context.Background()
	if cfg.Report.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Report.Timeout)
		defer cancel()
	}

	var out interface{}
	if reportCosts {
		rep, err := reporter.Cost(ctx, s, w)
		if err != nil {
			return err
		}
		out = rep
		if reportFlat {
			out = rep.Flavors
		}
	} else {
		rep, err := reporter.Consumption(ctx, s, w)
		if err != nil {
			return err
		}
		out = rep
		if reportFlat {
			out = rep.Total
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func reportScope() (scope.Scope, error) {
	var selected []scope.Scope
	if reportServer != "" {
		selected = append(selected, scope.Server(reportServer))
	}
	if reportUser != "" {
		selected = append(selected, scope.User(reportUser))
	}
	if reportProject != "" {
		selected = append(selected, scope.Project(reportProject))
	}
	if reportAll {
		selected = append(selected, scope.All())
	}
	if len(selected) != 1 {
		return scope.Scope{}, errors.New("select exactly one of --server, --user, --project, --all")
	}
	return selected[0], nil
}

func reportWindow() (usage.Window, error) {
	now := time.Now().UTC()
	w := usage.Window{
		Begin: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   now,
	}
	if reportBegin != "" {
		t, err := time.Parse(time.RFC3339, reportBegin)
		if err != nil {
			return w, fmt.Errorf("invalid --begin: %w", err)
		}
		w.Begin = t
	}
	if reportEnd != "" {
		t, err := time.Parse(time.RFC3339, reportEnd)
		if err != nil {
			return w, fmt.Errorf("invalid --end: %w", err)
		}
		w.End = t
	}
	if err := w.Validate(); err != nil {
		return w, err
	}
	return w, nil
}
