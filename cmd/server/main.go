package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ELENA-QPA/elena-case-sync/internal/cache"
	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/hearing"
	"github.com/ELENA-QPA/elena-case-sync/internal/importer"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/internal/server"
	"github.com/ELENA-QPA/elena-case-sync/internal/syncer"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", false, "Run database migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	if migrate {
		if err := database.RunMigrations(db); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		log.Info("Database migrations completed successfully")
		return
	}

	store := cache.NewStore(cfg.SummaryCacheTTL)
	client := provider.NewClient(cfg, log)
	hearings := hearing.NewService(db, log)
	engine := reconciler.NewEngine(db, log, hearings, cfg.CaseCodePrefix)
	imp := importer.New(engine, log)
	orch := syncer.New(cfg, db, client, engine, store, log)

	srv := server.New(cfg, db, orch, engine, imp, store, log)

	log.Info("Starting Case Sync Service",
		"host", cfg.Host,
		"port", cfg.Port,
		"provider", cfg.ProviderBaseURL,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed to start", "error", err)
	}
}
