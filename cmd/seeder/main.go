package main

import (
	"context"
	"flag"
	"time"

	"leverguard/internal/adapters/config"
	pgclient "leverguard/internal/adapters/postgres"
	"leverguard/internal/domain/position"
	pgrepo "leverguard/internal/repository/postgres"
	"leverguard/pkg/logger"
)

// seeder creates the ledger table and loads the demo positions into it,
// so the monitor can run with MONITOR_POSITION_SOURCE=postgres
func main() {
	dryRun := flag.Bool("dry-run", false, "List positions without writing")
	skipMigrate := flag.Bool("skip-migrate", false, "Do not apply the schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infow("Starting seeder",
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	positions, err := position.NewDemoSource().Load(ctx)
	if err != nil {
		log.Fatalf("Failed to build demo positions: %v", err)
	}

	if *dryRun {
		for _, p := range positions {
			log.Infow("Would seed position", "id", p.ID, "asset", p.Asset, "leverage", p.Leverage.String())
		}
		log.Info("✅ Dry-run mode: positions validated")
		return
	}

	client, err := pgclient.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = client.Close() }()

	writer := pgrepo.NewPositionWriter(client.DB())
	if !*skipMigrate {
		if err := writer.Migrate(ctx); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		log.Info("✅ Schema applied")
	}

	n, err := writer.Upsert(ctx, positions)
	if err != nil {
		log.Fatalf("Failed after %d positions: %v", n, err)
	}

	open, err := pgrepo.NewPositionSource(client.DB()).Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count open positions: %v", err)
	}

	log.Infow("✅ All positions seeded", "count", n, "open_in_ledger", open)
}
