package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cardforgehq/cardforge/internal/pkg/database"
	"github.com/cardforgehq/cardforge/internal/pkg/env"
)

// Standalone schema tool. The server migrates on boot as well; this exists
// for running migrations ahead of a deploy.
func main() {
	env.SetupEnvFile()

	if len(os.Args) > 1 && os.Args[1] != "up" {
		printUsage()
		os.Exit(1)
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("schema is up to date")
}

func printUsage() {
	fmt.Println("Usage: migrate [up]")
	fmt.Println("  up   apply the schema (default)")
}
