package main

import (
	"fmt"
	"os"

	"github.com/nurpe/drillstock/internal/auth"
	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/db"
	"github.com/nurpe/drillstock/internal/excel"
	httphandler "github.com/nurpe/drillstock/internal/http"
	"github.com/nurpe/drillstock/internal/http/middleware"
	"github.com/nurpe/drillstock/internal/logger"
	"github.com/nurpe/drillstock/internal/pdf"
	"github.com/nurpe/drillstock/internal/repository"
	"github.com/nurpe/drillstock/internal/service"
)

func main() {
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
	pdfGenerator, err := pdf.NewGenerator(cfg.Documents.FontPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}

	ledger := service.NewLedger(store, log)
	services := httphandler.Services{
		Ledger:    ledger,
		Catalog:   service.NewCatalog(store, ledger, log),
		Estimates: service.NewEstimates(store, ledger, log),
		Contracts: service.NewContracts(store, ledger, cfg.Ledger, log),
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(services, excel.NewGenerator(), pdfGenerator, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.CORSOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting drillstock service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
