package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudbill/cloudbill/adapters/idgen"
	"github.com/cloudbill/cloudbill/adapters/sqlite"
	"github.com/cloudbill/cloudbill/config"
	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/ports"
)

var (
	priceFlavor    string
	priceClass     int
	pricePerYear   float64
	priceValidFrom string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Manage flavor prices",
}

var pricesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all price records in ascending start order",
	RunE:  runPricesList,
}

var pricesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Record a new price for a flavor and user class",
	Long: `Record a price that takes effect at --valid-from.

The flavor is created in the catalog if it does not exist yet.
Earlier prices stay on record; reports pick the price in effect
at each instant of the report window.

Examples:
  cloudbill prices set --flavor m1.small --class 1 --per-year 876.0
  cloudbill prices set --flavor m1.large --class 3 --per-year 3504.0 --valid-from 2026-07-01T00:00:00Z`,
	RunE: runPricesSet,
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesListCmd)
	pricesCmd.AddCommand(pricesSetCmd)

	pricesSetCmd.Flags().StringVar(&priceFlavor, "flavor", "", "flavor name (required)")
	pricesSetCmd.Flags().IntVar(&priceClass, "class", 0, "user class 1-6 (required)")
	pricesSetCmd.Flags().Float64Var(&pricePerYear, "per-year", 0, "price per server-year")
	pricesSetCmd.Flags().StringVar(&priceValidFrom, "valid-from", "", "effective instant (RFC3339, default: now)")
	pricesSetCmd.MarkFlagRequired("flavor")
	pricesSetCmd.MarkFlagRequired("class")
}

func openPriceStore() (*sqlite.DB, ports.PriceStore, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, sqlite.NewPriceStore(db, idgen.UUID{}), nil
}

func runPricesList(cmd *cobra.Command, args []string) error {
	db, store, err := openPriceStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := store.ListPrices(context.Background())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLAVOR\tCLASS\tPER YEAR\tVALID FROM")
	for _, p := range records {
		fmt.Fprintf(tw, "%s\t%d\t%g\t%s\n",
			p.FlavorName, int(p.Class), p.PerYear, p.ValidFrom.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runPricesSet(cmd *cobra.Command, args []string) error {
	class, err := pricing.ParseClass(priceClass)
	if err != nil {
		return err
	}

	validFrom := time.Now().UTC()
	if priceValidFrom != "" {
		t, err := time.Parse(time.RFC3339, priceValidFrom)
		if err != nil {
			return fmt.Errorf("invalid --valid-from: %w", err)
		}
		validFrom = t
	}

	db, store, err := openPriceStore()
	if err != nil {
		return err
	}
	defer db.Close()

	price := pricing.Price{
		FlavorName: priceFlavor,
		Class:      class,
		PerYear:    pricePerYear,
		ValidFrom:  validFrom,
	}
	if err := store.SetPrice(context.Background(), price); err != nil {
		return err
	}

	fmt.Printf("Recorded price for %s class %d: %g per server-year from %s\n",
		priceFlavor, priceClass, pricePerYear, validFrom.Format(time.RFC3339))
	return nil
}
