package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/db"
	"github.com/nurpe/drillstock/internal/logger"
	"github.com/nurpe/drillstock/internal/repository"
	"github.com/nurpe/drillstock/internal/service"
)

// Usage:
//
//	go run ./cmd/ledger-repair -mode=nans
//	go run ./cmd/ledger-repair -mode=reconcile -dry-run=false -confirm=REPAIR
func main() {
	mode := flag.String("mode", "nans", "nans: zero non-finite numbers; reconcile: rebuild cached stock from the ledger")
	dryRun := flag.Bool("dry-run", true, "Report only (no writes)")
	confirm := flag.String("confirm", "", "Type REPAIR to proceed when dry-run=false")
	flag.Parse()

	if *mode != "nans" && *mode != "reconcile" {
		fmt.Fprintln(os.Stderr, "-mode must be nans or reconcile")
		os.Exit(2)
	}
	if !*dryRun && strings.TrimSpace(*confirm) != "REPAIR" {
		fmt.Fprintln(os.Stderr, "set -confirm=REPAIR to proceed when -dry-run=false")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	store := repository.NewRepository(database)
	ctx := context.Background()

	switch *mode {
	case "nans":
		report, err := service.NewMaintenance(store, log).RepairNonFinite(ctx, *dryRun)
		if err != nil {
			log.Error().Err(err).Msg("non-finite repair failed")
			os.Exit(1)
		}
		for _, r := range report.Repairs {
			fmt.Printf("%-8s %s %-30s %s was %v\n", r.Entity, r.ID, r.Label, r.Field, r.Was)
		}
		fmt.Printf("products: %d, movements: %d, dry-run: %v\n", report.Products(), report.Movements(), report.DryRun)
	case "reconcile":
		drifts, err := service.NewLedger(store, log).Reconcile(ctx, *dryRun)
		if err != nil {
			log.Error().Err(err).Msg("reconcile failed")
			os.Exit(1)
		}
		for _, d := range drifts {
			fmt.Printf("%s %-20s %-30s cached=%.3f ledger=%.3f\n", d.ProductID, d.InternalSKU, d.Name, d.Cached, d.Ledger)
		}
		fmt.Printf("drifted products: %d, dry-run: %v\n", len(drifts), *dryRun)
	}
}
