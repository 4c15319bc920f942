package main

import (
	"log"
	"os"

	"github.com/Doni354/HORA-APIs-sub000/internal/api"
	"github.com/Doni354/HORA-APIs-sub000/internal/cli"
	"github.com/Doni354/HORA-APIs-sub000/internal/config"
	"github.com/Doni354/HORA-APIs-sub000/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// CLI mode when invoked with arguments
	if len(os.Args) > 1 {
		cli.Execute(db, cfg)
		return
	}

	router, authManager, err := api.SetupRouter(db, cfg)
	if err != nil {
		log.Fatalf("Failed to setup router: %v", err)
	}

	log.Printf("Starting Hora mail server on port %s", cfg.APIPort)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Database path: %s", cfg.DatabasePath)
	log.Printf("API Key: %s", authManager.APIKeyManager.GetCurrentKey())
	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
