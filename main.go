package main

import (
	"flag"
	"log"

	"github.com/bitterfly/go-chaos/fabrica/config"
	"github.com/bitterfly/go-chaos/fabrica/database"
	"github.com/bitterfly/go-chaos/fabrica/logger"
	"github.com/bitterfly/go-chaos/fabrica/server"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration")
	migrateOnly := flag.Bool("migrate-only", false, "migrate the database and exit")
	flag.Parse()

	// Environment in .env is optional.
	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Could not load configuration: %s", err)
	}

	sugar, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Could not create logger: %s", err)
	}
	defer func() { _ = sugar.Sync() }()

	db, derr := database.Open(cfg.Database)
	if derr != nil {
		sugar.Fatalf("Could not connect to database: %s", derr)
	}
	sugar.Infof("Connected to %s database.", cfg.Database.Driver)

	if derr := database.Automigrate(db); derr != nil {
		sugar.Fatalf("Could not migrate: %s", derr)
	}
	sugar.Infof("Migrated the database.")
	if *migrateOnly {
		return
	}

	s := server.New(db, cfg, sugar)
	if err := s.Connect(cfg.Address); err != nil {
		sugar.Fatalf("%s", err)
	}
}
