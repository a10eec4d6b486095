package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Kanata-T/exam-prep-backend/internal/config"
	"github.com/Kanata-T/exam-prep-backend/internal/migration"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

func confirm(prompt string) bool {
	fmt.Printf("%s (yes/no): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func main() {
	var (
		snapshotPath = flag.String("snapshot", "", "Path to a local DuckDB snapshot of the legacy practice_history table (default: read from the hosted store)")
		reportPath   = flag.String("report", "migration_report.txt", "Path to write the migration report")
		logPath      = flag.String("log", "migration.log", "Path to write the migration log")
		skipConfirm  = flag.Bool("yes", false, "Skip confirmation prompts")
	)
	flag.Parse()

	// Load .env file if it exists (must be done before reading config)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", *logPath, err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if !*skipConfirm {
		fmt.Println("This will migrate legacy practice_history records into the normalized schema.")
		if !confirm("Continue with the migration?") {
			fmt.Println("Migration cancelled")
			os.Exit(0)
		}
		if !confirm("Are you sure? Existing data will not be removed, but new rows will be written") {
			fmt.Println("Migration cancelled")
			os.Exit(0)
		}
	}

	client := store.New(cfg.StoreURL, cfg.StoreKey)

	var source migration.LegacySource
	if *snapshotPath != "" {
		log.Printf("Reading legacy data from snapshot: %s", *snapshotPath)
		snapshot, err := migration.OpenSnapshot(*snapshotPath)
		if err != nil {
			log.Fatalf("Failed to open snapshot %s: %v", *snapshotPath, err)
		}
		defer snapshot.Close()
		source = snapshot
	} else {
		log.Printf("Reading legacy data from the hosted store")
		source = migration.NewStoreSource(client)
	}

	migrator := migration.New(client, source)
	if err := migrator.Run(*reportPath); err != nil {
		log.Printf("Migration failed: %v", err)
		fmt.Println("\n=== Migration FAILED ===")
		os.Exit(1)
	}

	fmt.Println("\n=== Migration completed successfully ===")
	fmt.Printf("Report written to %s\n", *reportPath)
}
